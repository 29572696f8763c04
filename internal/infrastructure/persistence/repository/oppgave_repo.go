package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
)

// OppgaveRepository implements port.OppgaveRepository. A partial unique
// index on (utbetaling_id) over non-terminal rows enforces at most one open
// task per payout even under concurrent creation; assignment and status
// changes are conditional updates.
type OppgaveRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOppgaveRepository creates a new oppgave repository
func NewOppgaveRepository(db *sql.DB, logger *zap.Logger) port.OppgaveRepository {
	return &OppgaveRepository{db: db, logger: logger}
}

const oppgaveKolonner = `id, vedtaksperiode_id, utbetaling_id, hendelse_id, fodselsnummer,
	status, egenskaper, tildelt_oid, tildelt_ident, pa_vent, opprettet, oppdatert`

func (r *OppgaveRepository) Opprett(ctx context.Context, o *entity.Oppgave) error {
	egenskaper, err := json.Marshal(o.Egenskaper)
	if err != nil {
		return fmt.Errorf("serialiser egenskaper: %w", err)
	}

	res, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO oppgave (vedtaksperiode_id, utbetaling_id, hendelse_id, fodselsnummer,
		   status, egenskaper, pa_vent, opprettet, oppdatert)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.VedtaksperiodeID.String(), o.UtbetalingID.String(), o.HendelseID.String(),
		o.Fodselsnummer, string(o.Status), string(egenskaper), o.PaVent, o.Opprettet, o.Oppdatert)
	if err != nil {
		r.logger.Error("Kunne ikke opprette oppgave", zap.Error(err))
		return fmt.Errorf("opprett oppgave: %w", err)
	}

	o.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

func (r *OppgaveRepository) Hent(ctx context.Context, id int64) (*entity.Oppgave, error) {
	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM oppgave WHERE id = ?`, oppgaveKolonner), id)
	return skannOppgave(row)
}

func (r *OppgaveRepository) HentAktivForUtbetaling(ctx context.Context, utbetalingID uuid.UUID) (*entity.Oppgave, error) {
	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM oppgave
		 WHERE utbetaling_id = ? AND status IN (?, ?) LIMIT 1`, oppgaveKolonner),
		utbetalingID.String(),
		string(entity.OppgaveAvventerSaksbehandler), string(entity.OppgaveAvventerSystem))
	return skannOppgave(row)
}

func (r *OppgaveRepository) HentAktivForVedtaksperiode(ctx context.Context, vedtaksperiodeID uuid.UUID) (*entity.Oppgave, error) {
	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM oppgave
		 WHERE vedtaksperiode_id = ? AND status IN (?, ?)
		 ORDER BY opprettet DESC LIMIT 1`, oppgaveKolonner),
		vedtaksperiodeID.String(),
		string(entity.OppgaveAvventerSaksbehandler), string(entity.OppgaveAvventerSystem))
	return skannOppgave(row)
}

func (r *OppgaveRepository) OppdaterStatus(ctx context.Context, id int64, fra []entity.OppgaveStatus, til entity.OppgaveStatus) (bool, error) {
	if len(fra) == 0 {
		return false, nil
	}
	plasser := strings.TrimSuffix(strings.Repeat("?, ", len(fra)), ", ")
	args := []any{string(til), time.Now(), id}
	for _, f := range fra {
		args = append(args, string(f))
	}

	res, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		fmt.Sprintf(`UPDATE oppgave SET status = ?, oppdatert = ?
		 WHERE id = ? AND status IN (%s)`, plasser), args...)
	if err != nil {
		return false, fmt.Errorf("oppdater oppgavestatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *OppgaveRepository) Tildel(ctx context.Context, id int64, saksbehandler entity.Saksbehandler) (bool, error) {
	res, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE oppgave SET tildelt_oid = ?, tildelt_ident = ?, oppdatert = ?
		 WHERE id = ? AND (tildelt_oid IS NULL OR tildelt_oid = ?)`,
		saksbehandler.OID.String(), saksbehandler.Ident, time.Now(),
		id, saksbehandler.OID.String())
	if err != nil {
		return false, fmt.Errorf("tildel oppgave: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *OppgaveRepository) AvmeldTildeling(ctx context.Context, id int64) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE oppgave SET tildelt_oid = NULL, tildelt_ident = NULL, oppdatert = ? WHERE id = ?`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("avmeld tildeling: %w", err)
	}
	return nil
}

func (r *OppgaveRepository) LeggTilEgenskap(ctx context.Context, id int64, egenskap entity.Egenskap) error {
	oppgave, err := r.Hent(ctx, id)
	if err != nil {
		return err
	}
	if oppgave == nil || oppgave.HarEgenskap(egenskap) {
		return nil
	}

	egenskaper, err := json.Marshal(append(oppgave.Egenskaper, egenskap))
	if err != nil {
		return fmt.Errorf("serialiser egenskaper: %w", err)
	}
	_, err = sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE oppgave SET egenskaper = ?, oppdatert = ? WHERE id = ?`,
		string(egenskaper), time.Now(), id)
	if err != nil {
		return fmt.Errorf("legg til egenskap: %w", err)
	}
	return nil
}

func (r *OppgaveRepository) List(ctx context.Context, limit, offset int) ([]*entity.Oppgave, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM oppgave ORDER BY opprettet DESC LIMIT ? OFFSET ?`, oppgaveKolonner),
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list oppgaver: %w", err)
	}
	defer rows.Close()

	var oppgaver []*entity.Oppgave
	for rows.Next() {
		o, err := skannOppgaveRad(rows)
		if err != nil {
			return nil, err
		}
		oppgaver = append(oppgaver, o)
	}
	return oppgaver, rows.Err()
}

func (r *OppgaveRepository) LagreHistorikk(ctx context.Context, id int64, fra, til entity.OppgaveStatus, av string) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO oppgave_historikk (oppgave_id, fra_status, til_status, endret_av, tidspunkt)
		 VALUES (?, ?, ?, ?, ?)`,
		id, string(fra), string(til), av, time.Now())
	if err != nil {
		return fmt.Errorf("lagre oppgavehistorikk: %w", err)
	}
	return nil
}

func skannOppgave(row *sql.Row) (*entity.Oppgave, error) {
	o, err := skannOppgaveRad(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func skannOppgaveRad(row radSkanner) (*entity.Oppgave, error) {
	var (
		vedtaksperiodeID, utbetalingID, hendelseID string
		status, egenskaper                         string
		tildeltOID, tildeltIdent                   sql.NullString
		o                                          entity.Oppgave
	)
	err := row.Scan(&o.ID, &vedtaksperiodeID, &utbetalingID, &hendelseID, &o.Fodselsnummer,
		&status, &egenskaper, &tildeltOID, &tildeltIdent, &o.PaVent, &o.Opprettet, &o.Oppdatert)
	if err != nil {
		return nil, err
	}

	if o.VedtaksperiodeID, err = uuid.Parse(vedtaksperiodeID); err != nil {
		return nil, fmt.Errorf("ugyldig vedtaksperiode-id: %w", err)
	}
	if o.UtbetalingID, err = uuid.Parse(utbetalingID); err != nil {
		return nil, fmt.Errorf("ugyldig utbetaling-id: %w", err)
	}
	if o.HendelseID, err = uuid.Parse(hendelseID); err != nil {
		return nil, fmt.Errorf("ugyldig hendelse-id: %w", err)
	}
	o.Status = entity.OppgaveStatus(status)
	if err := json.Unmarshal([]byte(egenskaper), &o.Egenskaper); err != nil {
		return nil, fmt.Errorf("dekod egenskaper: %w", err)
	}
	if tildeltOID.Valid {
		oid, err := uuid.Parse(tildeltOID.String)
		if err != nil {
			return nil, fmt.Errorf("ugyldig tildelt-oid: %w", err)
		}
		o.Tildelt = &entity.Saksbehandler{OID: oid, Ident: tildeltIdent.String}
	}
	return &o, nil
}

var _ port.OppgaveRepository = (*OppgaveRepository)(nil)
