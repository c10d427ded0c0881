package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/gocomet/rideshare/pkg/database"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store groups the ride and contract stores over one connection pool
type Store struct {
	db        *sql.DB
	rides     *RideStore
	contracts *ContractStore
}

// NewStore creates a store on db
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		rides:     &RideStore{q: db},
		contracts: &ContractStore{q: db},
	}
}

// EnsureSchema creates the tables and indexes if they are missing
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Rides() ride.Repository {
	return s.rides
}

func (s *Store) Contracts() ride.ContractRepository {
	return s.contracts
}

// WithinTx runs fn with stores bound to one transaction
func (s *Store) WithinTx(ctx context.Context, fn func(ride.Repository, ride.ContractRepository) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&RideStore{q: tx}, &ContractStore{q: tx})
	})
}
