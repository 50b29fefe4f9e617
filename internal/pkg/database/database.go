package database

import (
	"gorm.io/gorm"
)

// Connect opens a pool for one migration database. In case in future we
// support another database, we can just branch here.
func Connect(secret string) (*gorm.DB, error) {
	return ConnectToPostgreSQL(secret)
}

// Disconnect closes the pool behind db.
func Disconnect(db *gorm.DB) error {
	return DisconnectFromPostgreSQL(db)
}
