package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karl-run/spesialist/internal/domain/entity"
)

// mockOppgaveRepo is an in-memory OppgaveRepository enforcing the same
// conditional-write semantics as the sqlite implementation.
type mockOppgaveRepo struct {
	mu        sync.Mutex
	neste     int64
	oppgaver  map[int64]*entity.Oppgave
	historikk int
}

func newMockOppgaveRepo() *mockOppgaveRepo {
	return &mockOppgaveRepo{oppgaver: map[int64]*entity.Oppgave{}}
}

func (m *mockOppgaveRepo) Opprett(ctx context.Context, o *entity.Oppgave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neste++
	o.ID = m.neste
	kopi := *o
	m.oppgaver[o.ID] = &kopi
	return nil
}

func (m *mockOppgaveRepo) Hent(ctx context.Context, id int64) (*entity.Oppgave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.oppgaver[id]; ok {
		kopi := *o
		return &kopi, nil
	}
	return nil, nil
}

func (m *mockOppgaveRepo) HentAktivForUtbetaling(ctx context.Context, utbetalingID uuid.UUID) (*entity.Oppgave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.oppgaver {
		if o.UtbetalingID == utbetalingID && o.Status.ErAktiv() {
			kopi := *o
			return &kopi, nil
		}
	}
	return nil, nil
}

func (m *mockOppgaveRepo) HentAktivForVedtaksperiode(ctx context.Context, vedtaksperiodeID uuid.UUID) (*entity.Oppgave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.oppgaver {
		if o.VedtaksperiodeID == vedtaksperiodeID && o.Status.ErAktiv() {
			kopi := *o
			return &kopi, nil
		}
	}
	return nil, nil
}

func (m *mockOppgaveRepo) OppdaterStatus(ctx context.Context, id int64, fra []entity.OppgaveStatus, til entity.OppgaveStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.oppgaver[id]
	if !ok {
		return false, nil
	}
	for _, f := range fra {
		if o.Status == f {
			o.Status = til
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOppgaveRepo) Tildel(ctx context.Context, id int64, s entity.Saksbehandler) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.oppgaver[id]
	if !ok {
		return false, nil
	}
	if o.Tildelt != nil && o.Tildelt.OID != s.OID {
		return false, nil
	}
	o.Tildelt = &s
	return true, nil
}

func (m *mockOppgaveRepo) AvmeldTildeling(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.oppgaver[id]; ok {
		o.Tildelt = nil
	}
	return nil
}

func (m *mockOppgaveRepo) LeggTilEgenskap(ctx context.Context, id int64, e entity.Egenskap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.oppgaver[id]; ok {
		o.Egenskaper = append(o.Egenskaper, e)
	}
	return nil
}

func (m *mockOppgaveRepo) List(ctx context.Context, limit, offset int) ([]*entity.Oppgave, error) {
	return nil, nil
}

func (m *mockOppgaveRepo) LagreHistorikk(ctx context.Context, id int64, fra, til entity.OppgaveStatus, av string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historikk++
	return nil
}

func (m *mockOppgaveRepo) antallAktive(utbetalingID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.oppgaver {
		if o.UtbetalingID == utbetalingID && o.Status.ErAktiv() {
			n++
		}
	}
	return n
}

type mockReservasjonRepo struct {
	reservasjon *entity.Reservasjon
}

func (m *mockReservasjonRepo) Hent(ctx context.Context, fnr string) (*entity.Reservasjon, error) {
	return m.reservasjon, nil
}

func (m *mockReservasjonRepo) Opprett(ctx context.Context, r *entity.Reservasjon) error {
	m.reservasjon = r
	return nil
}

type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func testHendelse() entity.Hendelse {
	return entity.Godkjenningsbehov{
		HendelseBase: entity.HendelseBase{ID: uuid.New(), Fnr: "12345678910"},
	}
}

func ingenSaksbehandler(ctx context.Context, oid uuid.UUID) (*entity.Saksbehandler, entity.Tilganger, error) {
	return &entity.Saksbehandler{OID: oid, Ident: "A123456"}, entity.Tilganger{}, nil
}

func TestOpprett_IdempotentPaUtbetaling(t *testing.T) {
	repo := newMockOppgaveRepo()
	svc := NewOppgaveService(repo, &mockReservasjonRepo{}, mockTxManager{}, nopLogger{})

	ctx := context.Background()
	utbetalingID := uuid.New()
	egenskaper := []entity.Egenskap{entity.EgenskapSoknad}

	forste, events, err := svc.Opprett(ctx, testHendelse(), uuid.New(), utbetalingID, egenskaper, ingenSaksbehandler)
	require.NoError(t, err)
	require.NotNil(t, forste)
	assert.NotEmpty(t, events)

	andre, events, err := svc.Opprett(ctx, testHendelse(), uuid.New(), utbetalingID, egenskaper, ingenSaksbehandler)
	require.NoError(t, err)
	assert.Equal(t, forste.ID, andre.ID)
	assert.Empty(t, events, "replayed creation emits no events")
	assert.Equal(t, 1, repo.antallAktive(utbetalingID))
}

func TestTildel_KonkurrerendeTildeling(t *testing.T) {
	repo := newMockOppgaveRepo()
	svc := NewOppgaveService(repo, &mockReservasjonRepo{}, mockTxManager{}, nopLogger{})

	ctx := context.Background()
	oppgave, _, err := svc.Opprett(ctx, testHendelse(), uuid.New(), uuid.New(), nil, ingenSaksbehandler)
	require.NoError(t, err)

	a := entity.Saksbehandler{OID: uuid.New(), Ident: "A111111"}
	b := entity.Saksbehandler{OID: uuid.New(), Ident: "B222222"}

	_, err = svc.Tildel(ctx, oppgave.ID, a)
	require.NoError(t, err)

	// Idempotent for the same caseworker.
	_, err = svc.Tildel(ctx, oppgave.ID, a)
	require.NoError(t, err)

	// Conditional write rejects a second party.
	_, err = svc.Tildel(ctx, oppgave.ID, b)
	assert.ErrorIs(t, err, ErrAlleredeTildelt)
}

func TestOpprett_ReservasjonAutoTildeler(t *testing.T) {
	saksbehandlerOID := uuid.New()
	res := &mockReservasjonRepo{reservasjon: &entity.Reservasjon{
		Fodselsnummer:    "12345678910",
		SaksbehandlerOID: saksbehandlerOID,
		GyldigTil:        time.Now().Add(time.Hour),
	}}
	repo := newMockOppgaveRepo()
	svc := NewOppgaveService(repo, res, mockTxManager{}, nopLogger{})

	oppgave, _, err := svc.Opprett(context.Background(), testHendelse(), uuid.New(), uuid.New(),
		[]entity.Egenskap{entity.EgenskapSoknad}, ingenSaksbehandler)
	require.NoError(t, err)

	lagret, _ := repo.Hent(context.Background(), oppgave.ID)
	require.NotNil(t, lagret.Tildelt)
	assert.Equal(t, saksbehandlerOID, lagret.Tildelt.OID)
}

func TestOpprett_ReservasjonIgnorertUtenKlarering(t *testing.T) {
	res := &mockReservasjonRepo{reservasjon: &entity.Reservasjon{
		Fodselsnummer:    "12345678910",
		SaksbehandlerOID: uuid.New(),
		GyldigTil:        time.Now().Add(time.Hour),
	}}
	repo := newMockOppgaveRepo()
	svc := NewOppgaveService(repo, res, mockTxManager{}, nopLogger{})

	// The reserved caseworker lacks risk clearance; the task stays
	// unassigned.
	oppgave, _, err := svc.Opprett(context.Background(), testHendelse(), uuid.New(), uuid.New(),
		[]entity.Egenskap{entity.EgenskapRiskQA}, ingenSaksbehandler)
	require.NoError(t, err)

	lagret, _ := repo.Hent(context.Background(), oppgave.ID)
	assert.Nil(t, lagret.Tildelt)
}

func TestInvalider_ErIdempotent(t *testing.T) {
	repo := newMockOppgaveRepo()
	svc := NewOppgaveService(repo, &mockReservasjonRepo{}, mockTxManager{}, nopLogger{})

	ctx := context.Background()
	oppgave, _, err := svc.Opprett(ctx, testHendelse(), uuid.New(), uuid.New(), nil, ingenSaksbehandler)
	require.NoError(t, err)

	require.NoError(t, svc.Invalider(ctx, oppgave.ID))
	require.NoError(t, svc.Invalider(ctx, oppgave.ID), "replayed invalidation is absorbed")
}

func TestBeregnEgenskaper(t *testing.T) {
	egenskaper := BeregnEgenskaper(EgenskapFakta{
		Utfall:        entity.UtfallStikkprove,
		HarRiskVarsel: true,
		Mottaker:      entity.MottakerBegge,
		Inntektskilde: entity.FlereArbeidsgivere,
		Periodetype:   entity.Forstegangsbehandling,
	})

	assert.Contains(t, egenskaper, entity.EgenskapStikkprove)
	assert.Contains(t, egenskaper, entity.EgenskapRiskQA)
	assert.Contains(t, egenskaper, entity.EgenskapDelvisRefusjon)
	assert.Contains(t, egenskaper, entity.EgenskapFlereArbeidsgivere)
	assert.Contains(t, egenskaper, entity.EgenskapForstegangsbehandling)
	assert.Contains(t, egenskaper, entity.EgenskapSoknad)
	assert.NotContains(t, egenskaper, entity.EgenskapRevurdering)
}
