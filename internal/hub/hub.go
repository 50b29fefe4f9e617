// Package hub organizes database schemas and their sql files into
// migration units and turns each unit into an open-transaction participant.
package hub

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"tx-coordinator/internal/config"
	"tx-coordinator/internal/coordinator"
	"tx-coordinator/internal/pkg/database"
	"tx-coordinator/internal/pkg/errorc"
)

// MigrationUnit pairs a schema with its connection secret and its ordered
// list of sql files.
type MigrationUnit struct {
	Schema   string
	Secret   string
	SQLFiles []string
}

// Hub holds one migration unit per schema discovered in the sql directory.
type Hub struct {
	units map[string]MigrationUnit
}

// New discovers `<dir>/*.sql`, groups the files by the schema token of
// their basename and pairs each group with its database entry from cfg.
// A file name that carries no schema token, or a schema with no database
// entry, is a fatal planning error.
func New(dir string, cfg config.DbsConfig) (*Hub, error) {
	files, err := globFiles(dir)
	if err != nil {
		return nil, errorc.Plan(err)
	}

	mapping, err := buildSchemaSQLFilesMapping(files)
	if err != nil {
		return nil, errorc.Plan(err)
	}

	units := make(map[string]MigrationUnit, len(mapping))
	for schema, sqlFiles := range mapping {
		db, ok := cfg[schema]
		if !ok {
			return nil, errorc.Plan(fmt.Errorf("schema %q has sql files but no database entry in config", schema))
		}
		units[schema] = MigrationUnit{
			Schema:   schema,
			Secret:   db.Secret,
			SQLFiles: sqlFiles,
		}
	}

	return &Hub{units: units}, nil
}

// Units returns the migration units ordered by schema name.
func (h *Hub) Units() []MigrationUnit {
	units := make([]MigrationUnit, 0, len(h.units))
	for _, unit := range h.units {
		units = append(units, unit)
	}
	sort.Slice(units, func(i, j int) bool {
		return units[i].Schema < units[j].Schema
	})
	return units
}

func globFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.sql"))
}

// buildSchemaSQLFilesMapping groups file paths by the token between the
// first and second '-' of the basename, each group sorted ascending by
// full path.
func buildSchemaSQLFilesMapping(files []string) (map[string][]string, error) {
	mapping := make(map[string][]string)
	for _, file := range files {
		parts := strings.Split(filepath.Base(file), "-")
		if len(parts) < 2 {
			return nil, fmt.Errorf("sql file %q does not match <index>-<schema>-<name>.sql", file)
		}
		schema := parts[1]
		mapping[schema] = append(mapping[schema], file)
	}

	for _, group := range mapping {
		sort.Strings(group)
	}

	return mapping, nil
}

// BuildParticipants opens one pool per unit, begins one transaction per
// pool and wraps each in a participant. Any pool or begin failure aborts
// the whole run; pools opened so far are returned either way so the caller
// can close them.
func (h *Hub) BuildParticipants() ([]coordinator.Tx, []*gorm.DB, error) {
	var (
		mu    sync.Mutex
		txs   []coordinator.Tx
		pools []*gorm.DB
	)

	var g errgroup.Group
	for _, unit := range h.units {
		g.Go(func() error {
			db, err := database.Connect(unit.Secret)
			if err != nil {
				return errorc.Connection(fmt.Errorf("connect schema %q: %w", unit.Schema, err))
			}
			mu.Lock()
			pools = append(pools, db)
			mu.Unlock()

			tx, err := coordinator.NewMigrationTx(unit.Schema, db, unit.SQLFiles)
			if err != nil {
				return errorc.Connection(fmt.Errorf("begin transaction for schema %q: %w", unit.Schema, err))
			}
			mu.Lock()
			txs = append(txs, tx)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, pools, err
	}
	return txs, pools, nil
}
