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
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
)

// TotrinnsvurderingRepository implements port.TotrinnsvurderingRepository.
// One review row exists per task; OpprettEllerHent makes creation idempotent
// under concurrent send-to-decider requests.
type TotrinnsvurderingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTotrinnsvurderingRepository creates a new totrinnsvurdering repository
func NewTotrinnsvurderingRepository(db *sql.DB, logger *zap.Logger) port.TotrinnsvurderingRepository {
	return &TotrinnsvurderingRepository{db: db, logger: logger}
}

func (r *TotrinnsvurderingRepository) OpprettEllerHent(ctx context.Context, oppgaveID int64, vedtaksperiodeID uuid.UUID) (*entity.Totrinnsvurdering, error) {
	now := time.Now()
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO totrinnsvurdering (oppgave_id, vedtaksperiode_id, er_retur, opprettet, oppdatert)
		 VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT (oppgave_id) DO NOTHING`,
		oppgaveID, vedtaksperiodeID.String(), now, now)
	if err != nil {
		r.logger.Error("Kunne ikke opprette totrinnsvurdering", zap.Error(err))
		return nil, fmt.Errorf("opprett totrinnsvurdering: %w", err)
	}

	vurdering, err := r.Hent(ctx, oppgaveID)
	if err != nil {
		return nil, err
	}
	if vurdering == nil {
		return nil, fmt.Errorf("totrinnsvurdering for oppgave %d finnes ikke etter opprettelse", oppgaveID)
	}
	return vurdering, nil
}

func (r *TotrinnsvurderingRepository) Hent(ctx context.Context, oppgaveID int64) (*entity.Totrinnsvurdering, error) {
	var (
		v                        entity.Totrinnsvurdering
		vedtaksperiodeID         string
		saksbehandler, beslutter sql.NullString
	)
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT oppgave_id, vedtaksperiode_id, saksbehandler_oid, beslutter_oid, er_retur, opprettet, oppdatert
		 FROM totrinnsvurdering WHERE oppgave_id = ?`, oppgaveID).
		Scan(&v.OppgaveID, &vedtaksperiodeID, &saksbehandler, &beslutter, &v.ErRetur, &v.Opprettet, &v.Oppdatert)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hent totrinnsvurdering: %w", err)
	}

	if v.VedtaksperiodeID, err = uuid.Parse(vedtaksperiodeID); err != nil {
		return nil, fmt.Errorf("ugyldig vedtaksperiode-id: %w", err)
	}
	if v.Saksbehandler, err = parseNullUUID(saksbehandler); err != nil {
		return nil, fmt.Errorf("ugyldig saksbehandler-oid: %w", err)
	}
	if v.Beslutter, err = parseNullUUID(beslutter); err != nil {
		return nil, fmt.Errorf("ugyldig beslutter-oid: %w", err)
	}
	return &v, nil
}

func (r *TotrinnsvurderingRepository) Oppdater(ctx context.Context, vurdering *entity.Totrinnsvurdering) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE totrinnsvurdering
		 SET saksbehandler_oid = ?, beslutter_oid = ?, er_retur = ?, oppdatert = ?
		 WHERE oppgave_id = ?`,
		nullUUIDString(vurdering.Saksbehandler), nullUUIDString(vurdering.Beslutter),
		vurdering.ErRetur, time.Now(), vurdering.OppgaveID)
	if err != nil {
		return fmt.Errorf("oppdater totrinnsvurdering: %w", err)
	}
	return nil
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func nullUUIDString(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

var _ port.TotrinnsvurderingRepository = (*TotrinnsvurderingRepository)(nil)
