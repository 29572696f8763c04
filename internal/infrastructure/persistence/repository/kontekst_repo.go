package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
)

// KontekstRepository implements port.KontekstRepository. Behov and
// løsninger are stored as JSON documents; contexts are retained forever,
// terminal ones as immutable history.
type KontekstRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewKontekstRepository creates a new kontekst repository
func NewKontekstRepository(db *sql.DB, logger *zap.Logger) port.KontekstRepository {
	return &KontekstRepository{db: db, logger: logger}
}

func (r *KontekstRepository) Lagre(ctx context.Context, kontekst *entity.Kontekst) error {
	behov, err := json.Marshal(kontekst.Behov)
	if err != nil {
		return fmt.Errorf("serialiser behov: %w", err)
	}
	losninger, err := json.Marshal(kontekst.Losninger)
	if err != nil {
		return fmt.Errorf("serialiser løsninger: %w", err)
	}

	_, err = sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO kommandokontekst (id, hendelse_id, behov, losninger, terminal, opprettet)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   behov = excluded.behov,
		   losninger = excluded.losninger,
		   terminal = excluded.terminal`,
		kontekst.ID.String(), kontekst.HendelseID.String(),
		string(behov), string(losninger), kontekst.Terminal, kontekst.Opprettet)
	if err != nil {
		r.logger.Error("Kunne ikke lagre kontekst", zap.Error(err))
		return fmt.Errorf("lagre kontekst: %w", err)
	}
	return nil
}

func (r *KontekstRepository) Hent(ctx context.Context, id uuid.UUID) (*entity.Kontekst, error) {
	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, hendelse_id, behov, losninger, terminal, opprettet
		 FROM kommandokontekst WHERE id = ?`, id.String())
	return r.skann(row)
}

func (r *KontekstRepository) HentApenForHendelse(ctx context.Context, hendelseID uuid.UUID) (*entity.Kontekst, error) {
	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, hendelse_id, behov, losninger, terminal, opprettet
		 FROM kommandokontekst
		 WHERE hendelse_id = ? AND terminal = 0
		 ORDER BY opprettet DESC LIMIT 1`, hendelseID.String())
	return r.skann(row)
}

func (r *KontekstRepository) LagreLosning(ctx context.Context, kontekstID uuid.UUID, behov string, losning []byte) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE kommandokontekst
		 SET losninger = json_set(losninger, '$."' || ? || '"', json(?))
		 WHERE id = ? AND terminal = 0`,
		behov, string(losning), kontekstID.String())
	if err != nil {
		r.logger.Error("Kunne ikke lagre løsning", zap.Error(err))
		return fmt.Errorf("lagre løsning: %w", err)
	}
	return nil
}

func (r *KontekstRepository) MarkerFerdig(ctx context.Context, id uuid.UUID) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE kommandokontekst SET terminal = 1 WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("marker kontekst ferdig: %w", err)
	}
	return nil
}

func (r *KontekstRepository) FinnStuck(ctx context.Context, eldreEnn time.Time, limit int) ([]*entity.Kontekst, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx,
		`SELECT id, hendelse_id, behov, losninger, terminal, opprettet
		 FROM kommandokontekst
		 WHERE terminal = 0 AND opprettet < ?
		 ORDER BY opprettet ASC LIMIT ?`, eldreEnn, limit)
	if err != nil {
		return nil, fmt.Errorf("finn stuck kontekster: %w", err)
	}
	defer rows.Close()

	var konteksten []*entity.Kontekst
	for rows.Next() {
		k, err := r.skannRad(rows)
		if err != nil {
			return nil, err
		}
		konteksten = append(konteksten, k)
	}
	return konteksten, rows.Err()
}

func (r *KontekstRepository) TellStuck(ctx context.Context, eldreEnn time.Time) (int, error) {
	var n int
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM kommandokontekst WHERE terminal = 0 AND opprettet < ?`,
		eldreEnn).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("tell stuck kontekster: %w", err)
	}
	return n, nil
}

type radSkanner interface {
	Scan(dest ...interface{}) error
}

func (r *KontekstRepository) skann(row *sql.Row) (*entity.Kontekst, error) {
	k, err := r.skannRad(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return k, err
}

func (r *KontekstRepository) skannRad(row radSkanner) (*entity.Kontekst, error) {
	var (
		id, hendelseID   string
		behov, losninger string
		kontekst         entity.Kontekst
	)
	err := row.Scan(&id, &hendelseID, &behov, &losninger, &kontekst.Terminal, &kontekst.Opprettet)
	if err != nil {
		return nil, err
	}

	if kontekst.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("ugyldig kontekst-id: %w", err)
	}
	if kontekst.HendelseID, err = uuid.Parse(hendelseID); err != nil {
		return nil, fmt.Errorf("ugyldig hendelse-id: %w", err)
	}
	if err := json.Unmarshal([]byte(behov), &kontekst.Behov); err != nil {
		return nil, fmt.Errorf("dekod behov: %w", err)
	}
	if err := json.Unmarshal([]byte(losninger), &kontekst.Losninger); err != nil {
		return nil, fmt.Errorf("dekod løsninger: %w", err)
	}
	return &kontekst, nil
}

var _ port.KontekstRepository = (*KontekstRepository)(nil)
