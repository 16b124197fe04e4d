package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Executor runs DDL. Both *sql.DB and *db.Pool satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type ForeignKey struct {
	Column     string
	References string
	OnDelete   string
}

// Table is one entry of the schema list. DDL must be idempotent (IF NOT EXISTS).
type Table struct {
	Name        string
	DDL         string
	ForeignKeys []ForeignKey
}

// SchemaError names the table whose DDL failed
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("failed to validate or create schema for table %q: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Ensure applies each table's DDL in list order and stops at the first failure.
// Tables applied before the failure are left in place.
func Ensure(ctx context.Context, exec Executor, tables []Table, logger zerolog.Logger) error {
	log := logger.With().Str("component", "schema").Logger()

	for _, t := range tables {
		if _, err := exec.ExecContext(ctx, t.DDL); err != nil {
			log.Error().Err(err).Str("table", t.Name).Msg("Failed to validate or create table schema")
			return &SchemaError{Table: t.Name, Err: err}
		}
		log.Info().Str("table", t.Name).Msg("Schema validated or created")
	}

	log.Info().Int("tables", len(tables)).Msg("Database schema is up to date")
	return nil
}

// CheckOrder verifies that every foreign key points at a table listed earlier
func CheckOrder(tables []Table) error {
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		if seen[t.Name] {
			return fmt.Errorf("table %q listed twice", t.Name)
		}
		for _, fk := range t.ForeignKeys {
			if fk.References == t.Name {
				continue
			}
			if !seen[fk.References] {
				return fmt.Errorf("table %q references %q (column %s) before it is created", t.Name, fk.References, fk.Column)
			}
		}
		seen[t.Name] = true
	}
	return nil
}
