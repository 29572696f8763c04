package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/application/service"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/infrastructure/worker"
)

type fakeOppgaveRepo struct {
	oppgaver map[int64]*entity.Oppgave
}

func (f *fakeOppgaveRepo) Opprett(ctx context.Context, o *entity.Oppgave) error {
	o.ID = int64(len(f.oppgaver) + 1)
	f.oppgaver[o.ID] = o
	return nil
}

func (f *fakeOppgaveRepo) Hent(ctx context.Context, id int64) (*entity.Oppgave, error) {
	return f.oppgaver[id], nil
}

func (f *fakeOppgaveRepo) HentAktivForUtbetaling(ctx context.Context, utbetalingID uuid.UUID) (*entity.Oppgave, error) {
	for _, o := range f.oppgaver {
		if o.UtbetalingID == utbetalingID && o.Status.ErAktiv() {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeOppgaveRepo) HentAktivForVedtaksperiode(ctx context.Context, vedtaksperiodeID uuid.UUID) (*entity.Oppgave, error) {
	for _, o := range f.oppgaver {
		if o.VedtaksperiodeID == vedtaksperiodeID && o.Status.ErAktiv() {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeOppgaveRepo) OppdaterStatus(ctx context.Context, id int64, fra []entity.OppgaveStatus, til entity.OppgaveStatus) (bool, error) {
	o, ok := f.oppgaver[id]
	if !ok {
		return false, nil
	}
	for _, s := range fra {
		if o.Status == s {
			o.Status = til
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOppgaveRepo) Tildel(ctx context.Context, id int64, saksbehandler entity.Saksbehandler) (bool, error) {
	o, ok := f.oppgaver[id]
	if !ok {
		return false, nil
	}
	if o.Tildelt != nil && o.Tildelt.OID != saksbehandler.OID {
		return false, nil
	}
	o.Tildelt = &saksbehandler
	return true, nil
}

func (f *fakeOppgaveRepo) AvmeldTildeling(ctx context.Context, id int64) error {
	if o, ok := f.oppgaver[id]; ok {
		o.Tildelt = nil
	}
	return nil
}

func (f *fakeOppgaveRepo) LeggTilEgenskap(ctx context.Context, id int64, egenskap entity.Egenskap) error {
	if o, ok := f.oppgaver[id]; ok && !o.HarEgenskap(egenskap) {
		o.Egenskaper = append(o.Egenskaper, egenskap)
	}
	return nil
}

func (f *fakeOppgaveRepo) List(ctx context.Context, limit, offset int) ([]*entity.Oppgave, error) {
	var alle []*entity.Oppgave
	for _, o := range f.oppgaver {
		alle = append(alle, o)
	}
	return alle, nil
}

func (f *fakeOppgaveRepo) LagreHistorikk(ctx context.Context, id int64, fra, til entity.OppgaveStatus, av string) error {
	return nil
}

type fakeReservasjonRepo struct{}

func (f *fakeReservasjonRepo) Hent(ctx context.Context, fodselsnummer string) (*entity.Reservasjon, error) {
	return nil, nil
}

func (f *fakeReservasjonRepo) Opprett(ctx context.Context, r *entity.Reservasjon) error {
	return nil
}

type fakeSaksbehandlerRepo struct{}

func (fakeSaksbehandlerRepo) Hent(ctx context.Context, oid uuid.UUID) (*entity.Saksbehandler, entity.Tilganger, error) {
	return nil, entity.Tilganger{}, nil
}

func (fakeSaksbehandlerRepo) Lagre(ctx context.Context, s entity.Saksbehandler) error { return nil }

type fakeTotrinnsRepo struct {
	vurderinger map[int64]*entity.Totrinnsvurdering
}

func (f *fakeTotrinnsRepo) OpprettEllerHent(ctx context.Context, oppgaveID int64, vedtaksperiodeID uuid.UUID) (*entity.Totrinnsvurdering, error) {
	if v, ok := f.vurderinger[oppgaveID]; ok {
		return v, nil
	}
	v := &entity.Totrinnsvurdering{OppgaveID: oppgaveID, VedtaksperiodeID: vedtaksperiodeID}
	f.vurderinger[oppgaveID] = v
	return v, nil
}

func (f *fakeTotrinnsRepo) Hent(ctx context.Context, oppgaveID int64) (*entity.Totrinnsvurdering, error) {
	return f.vurderinger[oppgaveID], nil
}

func (f *fakeTotrinnsRepo) Oppdater(ctx context.Context, v *entity.Totrinnsvurdering) error {
	f.vurderinger[v.OppgaveID] = v
	return nil
}

type fakeKontekstRepo struct {
	stuck []*entity.Kontekst
}

func (f *fakeKontekstRepo) Lagre(ctx context.Context, k *entity.Kontekst) error { return nil }
func (f *fakeKontekstRepo) Hent(ctx context.Context, id uuid.UUID) (*entity.Kontekst, error) {
	return nil, nil
}
func (f *fakeKontekstRepo) HentApenForHendelse(ctx context.Context, hendelseID uuid.UUID) (*entity.Kontekst, error) {
	return nil, nil
}
func (f *fakeKontekstRepo) LagreLosning(ctx context.Context, kontekstID uuid.UUID, behov string, losning []byte) error {
	return nil
}
func (f *fakeKontekstRepo) MarkerFerdig(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeKontekstRepo) FinnStuck(ctx context.Context, eldreEnn time.Time, limit int) ([]*entity.Kontekst, error) {
	return f.stuck, nil
}
func (f *fakeKontekstRepo) TellStuck(ctx context.Context, eldreEnn time.Time) (int, error) {
	return len(f.stuck), nil
}

type fakeOvervaker struct {
	bilde worker.Tilstandsbilde
}

func (f *fakeOvervaker) Snapshot() worker.Tilstandsbilde { return f.bilde }

type nopTx struct{}

func (nopTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func nyTestServer(t *testing.T, oppgaveRepo port.OppgaveRepository, kontekstRepo port.KontekstRepository, overvaker Overvaker) *Server {
	t.Helper()
	oppgaveService := service.NewOppgaveService(oppgaveRepo, &fakeReservasjonRepo{}, nopTx{}, nopLogger{})
	totrinnsService := service.NewTotrinnsvurderingService(
		&fakeTotrinnsRepo{vurderinger: map[int64]*entity.Totrinnsvurdering{}},
		oppgaveRepo, fakeSaksbehandlerRepo{}, oppgaveService, nopTx{}, nopLogger{})
	return NewServer(DefaultServerConfig(), oppgaveService, totrinnsService, kontekstRepo, overvaker, 30*time.Minute, nopLogger{})
}

func nyAktivOppgave(repo *fakeOppgaveRepo) *entity.Oppgave {
	o := &entity.Oppgave{
		VedtaksperiodeID: uuid.New(),
		UtbetalingID:     uuid.New(),
		HendelseID:       uuid.New(),
		Fodselsnummer:    "12345678910",
		Status:           entity.OppgaveAvventerSaksbehandler,
		Egenskaper:       []entity.Egenskap{entity.EgenskapSoknad},
		Opprettet:        time.Now(),
		Oppdatert:        time.Now(),
	}
	_ = repo.Opprett(context.Background(), o)
	return o
}

func TestHealthCheck(t *testing.T) {
	server := nyTestServer(t, &fakeOppgaveRepo{oppgaver: map[int64]*entity.Oppgave{}}, &fakeKontekstRepo{}, &fakeOvervaker{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetOppgave_Finnes(t *testing.T) {
	repo := &fakeOppgaveRepo{oppgaver: map[int64]*entity.Oppgave{}}
	oppgave := nyAktivOppgave(repo)
	server := nyTestServer(t, repo, &fakeKontekstRepo{}, &fakeOvervaker{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/oppgaver/1", nil)
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var hentet OppgaveResponse
	require.NoError(t, json.Unmarshal(data, &hentet))
	assert.Equal(t, oppgave.UtbetalingID.String(), hentet.UtbetalingID)
	assert.Equal(t, "AVVENTER_SAKSBEHANDLER", hentet.Status)
}

func TestGetOppgave_IkkeFunnet(t *testing.T) {
	server := nyTestServer(t, &fakeOppgaveRepo{oppgaver: map[int64]*entity.Oppgave{}}, &fakeKontekstRepo{}, &fakeOvervaker{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/oppgaver/42", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTildelOppgave_KonfliktNarTildeltAnnen(t *testing.T) {
	repo := &fakeOppgaveRepo{oppgaver: map[int64]*entity.Oppgave{}}
	oppgave := nyAktivOppgave(repo)
	annen := uuid.New()
	oppgave.Tildelt = &entity.Saksbehandler{OID: annen, Ident: "X999999"}
	server := nyTestServer(t, repo, &fakeKontekstRepo{}, &fakeOvervaker{})

	body, _ := json.Marshal(TildelingRequest{SaksbehandlerOID: uuid.NewString(), Ident: "A111111"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/oppgaver/1/tildeling", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, annen, oppgave.Tildelt.OID)
}

func TestTildelOppgave_OK(t *testing.T) {
	repo := &fakeOppgaveRepo{oppgaver: map[int64]*entity.Oppgave{}}
	nyAktivOppgave(repo)
	server := nyTestServer(t, repo, &fakeKontekstRepo{}, &fakeOvervaker{})

	body, _ := json.Marshal(TildelingRequest{SaksbehandlerOID: uuid.NewString(), Ident: "A111111"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/oppgaver/1/tildeling", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, repo.oppgaver[1].Tildelt)
}

func TestStuckKontekster(t *testing.T) {
	kontekst := entity.NyKontekst(uuid.New())
	kontekst.Behov["Risikovurdering"] = map[string]any{}
	kontekstRepo := &fakeKontekstRepo{stuck: []*entity.Kontekst{kontekst}}
	overvaker := &fakeOvervaker{bilde: worker.Tilstandsbilde{AntallStuck: 1, SistSjekket: time.Now()}}
	server := nyTestServer(t, &fakeOppgaveRepo{oppgaver: map[int64]*entity.Oppgave{}}, kontekstRepo, overvaker)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/internal/kontekster/stuck", nil)
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Snapshot   worker.Tilstandsbilde   `json:"snapshot"`
			Kontekster []StuckKontekstResponse `json:"kontekster"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Snapshot.AntallStuck)
	require.Len(t, resp.Data.Kontekster, 1)
	assert.Equal(t, []string{"Risikovurdering"}, resp.Data.Kontekster[0].UbesvarteBehov)
}

func TestRetur_GjenapnerOppgaven(t *testing.T) {
	repo := &fakeOppgaveRepo{oppgaver: map[int64]*entity.Oppgave{}}
	nyAktivOppgave(repo)
	server := nyTestServer(t, repo, &fakeKontekstRepo{}, &fakeOvervaker{})

	post := func(path string, oid uuid.UUID) *httptest.ResponseRecorder {
		body, _ := json.Marshal(TotrinnsvurderingRequest{SaksbehandlerOID: oid.String()})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		server.Router().ServeHTTP(w, req)
		return w
	}

	saksbehandler := uuid.New()
	require.Equal(t, http.StatusOK, post("/api/v1/oppgaver/1/totrinnsvurdering", saksbehandler).Code)
	assert.Equal(t, entity.OppgaveAvventerSystem, repo.oppgaver[1].Status)

	// The caseworker who sent the task cannot act as its reviewer.
	assert.Equal(t, http.StatusConflict, post("/api/v1/oppgaver/1/retur", saksbehandler).Code)
	assert.Equal(t, http.StatusConflict, post("/api/v1/oppgaver/1/attestering", saksbehandler).Code)

	require.Equal(t, http.StatusOK, post("/api/v1/oppgaver/1/retur", uuid.New()).Code)
	assert.Equal(t, entity.OppgaveAvventerSaksbehandler, repo.oppgaver[1].Status)
	assert.True(t, repo.oppgaver[1].HarEgenskap(entity.EgenskapRetur))
}
