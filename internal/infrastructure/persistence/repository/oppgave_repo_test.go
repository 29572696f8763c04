package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/pkg/database"
)

// nyTestDB opens a throwaway database file and runs the real migrations so
// the tests exercise the actual schema, constraints included.
func nyTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:            t.TempDir() + "/test.db",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations("../../../../migrations"))

	return db
}

func nyOppgave() *entity.Oppgave {
	now := time.Now().UTC().Truncate(time.Second)
	return &entity.Oppgave{
		VedtaksperiodeID: uuid.New(),
		UtbetalingID:     uuid.New(),
		HendelseID:       uuid.New(),
		Fodselsnummer:    "12345678911",
		Status:           entity.OppgaveAvventerSaksbehandler,
		Egenskaper:       []entity.Egenskap{entity.EgenskapSoknad},
		Opprettet:        now,
		Oppdatert:        now,
	}
}

func TestOppgaveRepository_OpprettOgHent(t *testing.T) {
	db := nyTestDB(t)
	repo := NewOppgaveRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	oppgave := nyOppgave()
	require.NoError(t, repo.Opprett(ctx, oppgave))
	require.NotZero(t, oppgave.ID, "id settes ved innsetting")

	hentet, err := repo.Hent(ctx, oppgave.ID)
	require.NoError(t, err)
	assert.Equal(t, oppgave.UtbetalingID, hentet.UtbetalingID)
	assert.Equal(t, entity.OppgaveAvventerSaksbehandler, hentet.Status)
	assert.Equal(t, []entity.Egenskap{entity.EgenskapSoknad}, hentet.Egenskaper)
	assert.Nil(t, hentet.Tildelt)
}

func TestOppgaveRepository_EnAktivPerUtbetaling(t *testing.T) {
	db := nyTestDB(t)
	repo := NewOppgaveRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	forste := nyOppgave()
	require.NoError(t, repo.Opprett(ctx, forste))

	duplikat := nyOppgave()
	duplikat.UtbetalingID = forste.UtbetalingID
	assert.Error(t, repo.Opprett(ctx, duplikat), "to aktive oppgaver for samme utbetaling avvises")

	// Ferdigstilt teller ikke som aktiv, en ny runde kan opprette på nytt.
	ok, err := repo.OppdaterStatus(ctx, forste.ID,
		[]entity.OppgaveStatus{entity.OppgaveAvventerSaksbehandler}, entity.OppgaveFerdigstilt)
	require.NoError(t, err)
	require.True(t, ok)

	assert.NoError(t, repo.Opprett(ctx, duplikat))
}

func TestOppgaveRepository_OppdaterStatusErBetinget(t *testing.T) {
	db := nyTestDB(t)
	repo := NewOppgaveRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	oppgave := nyOppgave()
	require.NoError(t, repo.Opprett(ctx, oppgave))

	ok, err := repo.OppdaterStatus(ctx, oppgave.ID,
		[]entity.OppgaveStatus{entity.OppgaveAvventerSystem}, entity.OppgaveFerdigstilt)
	require.NoError(t, err)
	assert.False(t, ok, "feil utgangsstatus gir ingen endring")

	hentet, err := repo.Hent(ctx, oppgave.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OppgaveAvventerSaksbehandler, hentet.Status)
}

func TestOppgaveRepository_TildelErBetinget(t *testing.T) {
	db := nyTestDB(t)
	repo := NewOppgaveRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	oppgave := nyOppgave()
	require.NoError(t, repo.Opprett(ctx, oppgave))

	eier := entity.Saksbehandler{OID: uuid.New(), Navn: "Kari", Ident: "K111111"}
	annen := entity.Saksbehandler{OID: uuid.New(), Navn: "Ola", Ident: "O222222"}

	ok, err := repo.Tildel(ctx, oppgave.ID, eier)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Tildel(ctx, oppgave.ID, eier)
	require.NoError(t, err)
	assert.True(t, ok, "samme eier kan tildele på nytt")

	ok, err = repo.Tildel(ctx, oppgave.ID, annen)
	require.NoError(t, err)
	assert.False(t, ok, "en annen eier avvises")

	require.NoError(t, repo.AvmeldTildeling(ctx, oppgave.ID))
	ok, err = repo.Tildel(ctx, oppgave.ID, annen)
	require.NoError(t, err)
	assert.True(t, ok, "etter avmelding er oppgaven ledig")
}

func TestOppgaveRepository_HentAktivForUtbetaling(t *testing.T) {
	db := nyTestDB(t)
	repo := NewOppgaveRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	oppgave := nyOppgave()
	require.NoError(t, repo.Opprett(ctx, oppgave))

	aktiv, err := repo.HentAktivForUtbetaling(ctx, oppgave.UtbetalingID)
	require.NoError(t, err)
	require.NotNil(t, aktiv)
	assert.Equal(t, oppgave.ID, aktiv.ID)

	ingen, err := repo.HentAktivForUtbetaling(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, ingen)
}

func TestOppgaveRepository_Historikk(t *testing.T) {
	db := nyTestDB(t)
	repo := NewOppgaveRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	oppgave := nyOppgave()
	require.NoError(t, repo.Opprett(ctx, oppgave))

	require.NoError(t, repo.LagreHistorikk(ctx, oppgave.ID,
		entity.OppgaveAvventerSaksbehandler, entity.OppgaveFerdigstilt, "K111111"))

	var antall int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(1) FROM oppgave_historikk WHERE oppgave_id = ?", oppgave.ID).Scan(&antall))
	assert.Equal(t, 1, antall)
}
