package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	// Each migration database gets a dedicated pool holding the single
	// connection its transaction lives on.
	maxOpenConns = 1

	// acquireTimeout bounds how long establishing that connection may take.
	acquireTimeout = 3 * time.Second
)

// ConnectToPostgreSQL opens a single-connection pool for one migration
// database. The secret is a standard postgres connection URL.
func ConnectToPostgreSQL(secret string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  secret,
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// DisconnectFromPostgreSQL closes the pool behind db.
func DisconnectFromPostgreSQL(db *gorm.DB) error {
	pg, err := db.DB()
	if err != nil {
		return err
	}

	return pg.Close()
}
