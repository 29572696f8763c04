package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
)

// HendelseRepository implements port.HendelseRepository. Rows are immutable;
// a redelivered hendelse with a known id is absorbed without touching the
// stored payload.
type HendelseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHendelseRepository creates a new hendelse repository
func NewHendelseRepository(db *sql.DB, logger *zap.Logger) port.HendelseRepository {
	return &HendelseRepository{db: db, logger: logger}
}

func (r *HendelseRepository) Lagre(ctx context.Context, id uuid.UUID, navn, fodselsnummer string, melding []byte) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO hendelse (id, navn, fodselsnummer, melding, opprettet)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		id.String(), navn, fodselsnummer, melding, time.Now())
	if err != nil {
		r.logger.Error("Kunne ikke lagre hendelse", zap.Error(err))
		return fmt.Errorf("lagre hendelse: %w", err)
	}
	return nil
}

func (r *HendelseRepository) Hent(ctx context.Context, id uuid.UUID) (string, string, []byte, error) {
	var navn, fodselsnummer string
	var melding []byte
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT navn, fodselsnummer, melding FROM hendelse WHERE id = ?`,
		id.String()).Scan(&navn, &fodselsnummer, &melding)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil, fmt.Errorf("hendelse %s finnes ikke", id)
	}
	if err != nil {
		return "", "", nil, fmt.Errorf("hent hendelse: %w", err)
	}
	return navn, fodselsnummer, melding, nil
}

var _ port.HendelseRepository = (*HendelseRepository)(nil)
