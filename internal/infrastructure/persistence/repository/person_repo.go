// Package repository holds the sqlite implementations of the application's
// persistence ports. All state changes that race with redelivered or
// re-ordered bus traffic are conditional writes keyed on the expected
// current state.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
)

// PersonRepository implements port.PersonRepository
type PersonRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(db *sql.DB, logger *zap.Logger) port.PersonRepository {
	return &PersonRepository{db: db, logger: logger}
}

func (r *PersonRepository) Finnes(ctx context.Context, fodselsnummer string) (bool, error) {
	var n int
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM person WHERE fodselsnummer = ?`, fodselsnummer).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sjekk person: %w", err)
	}
	return n > 0, nil
}

func (r *PersonRepository) Opprett(ctx context.Context, fodselsnummer string) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO person (fodselsnummer, opprettet) VALUES (?, ?)
		 ON CONFLICT (fodselsnummer) DO NOTHING`,
		fodselsnummer, time.Now())
	if err != nil {
		r.logger.Error("Kunne ikke opprette person", zap.Error(err))
		return fmt.Errorf("opprett person: %w", err)
	}
	return nil
}

var _ port.PersonRepository = (*PersonRepository)(nil)
