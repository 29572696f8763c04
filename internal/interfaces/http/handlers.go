package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/application/service"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/infrastructure/worker"
)

// Overvaker exposes the stuck-context monitor's last sweep.
type Overvaker interface {
	Snapshot() worker.Tilstandsbilde
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	oppgaveService  *service.OppgaveService
	totrinnsService *service.TotrinnsvurderingService
	kontekstRepo    port.KontekstRepository
	overvaker       Overvaker
	stuckEtter      time.Duration
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	oppgaveService *service.OppgaveService,
	totrinnsService *service.TotrinnsvurderingService,
	kontekstRepo port.KontekstRepository,
	overvaker Overvaker,
	stuckEtter time.Duration,
	logger Logger,
) *Handlers {
	return &Handlers{
		oppgaveService:  oppgaveService,
		totrinnsService: totrinnsService,
		kontekstRepo:    kontekstRepo,
		overvaker:       overvaker,
		stuckEtter:      stuckEtter,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OppgaveResponse represents a caseworker task in API responses
type OppgaveResponse struct {
	ID               int64    `json:"id"`
	VedtaksperiodeID string   `json:"vedtaksperiodeId"`
	UtbetalingID     string   `json:"utbetalingId"`
	Status           string   `json:"status"`
	Egenskaper       []string `json:"egenskaper"`
	TildeltOID       *string  `json:"tildeltOid,omitempty"`
	TildeltIdent     *string  `json:"tildeltIdent,omitempty"`
	PaVent           bool     `json:"paVent"`
	Opprettet        string   `json:"opprettet"`
	Oppdatert        string   `json:"oppdatert"`
}

// StuckKontekstResponse represents one suspended context awaiting answers.
type StuckKontekstResponse struct {
	KontekstID     string   `json:"kontekstId"`
	HendelseID     string   `json:"hendelseId"`
	UbesvarteBehov []string `json:"ubesvarteBehov"`
	Opprettet      string   `json:"opprettet"`
}

// TildelingRequest is the body of a manual assignment.
type TildelingRequest struct {
	SaksbehandlerOID string `json:"saksbehandlerOid" binding:"required"`
	Ident            string `json:"ident" binding:"required"`
	Navn             string `json:"navn"`
	Epost            string `json:"epost"`
}

// TotrinnsvurderingRequest is the body of a send-to-decider request.
type TotrinnsvurderingRequest struct {
	SaksbehandlerOID string `json:"saksbehandlerOid" binding:"required"`
}

// ListOppgaverRequest represents query parameters for listing tasks
type ListOppgaverRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ListOppgaver handles GET /api/v1/oppgaver
func (h *Handlers) ListOppgaver(c *gin.Context) {
	var req ListOppgaverRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	oppgaver, err := h.oppgaveService.List(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("Failed to list oppgaver", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve oppgaver"})
		return
	}

	respons := make([]OppgaveResponse, 0, len(oppgaver))
	for _, oppgave := range oppgaver {
		respons = append(respons, toOppgaveResponse(oppgave))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: respons})
}

// GetOppgave handles GET /api/v1/oppgaver/:id
func (h *Handlers) GetOppgave(c *gin.Context) {
	id, ok := h.oppgaveID(c)
	if !ok {
		return
	}

	oppgave, err := h.oppgaveService.Hent(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get oppgave", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve oppgave"})
		return
	}
	if oppgave == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "oppgave not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toOppgaveResponse(oppgave)})
}

// TildelOppgave handles POST /api/v1/oppgaver/:id/tildeling
func (h *Handlers) TildelOppgave(c *gin.Context) {
	id, ok := h.oppgaveID(c)
	if !ok {
		return
	}

	var req TildelingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	oid, err := uuid.Parse(req.SaksbehandlerOID)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid saksbehandlerOid"})
		return
	}

	oppgave, err := h.oppgaveService.Tildel(c.Request.Context(), id, entity.Saksbehandler{
		OID:   oid,
		Ident: req.Ident,
		Navn:  req.Navn,
		Epost: req.Epost,
	})
	switch {
	case errors.Is(err, service.ErrOppgaveIkkeAktiv):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
		return
	case errors.Is(err, service.ErrAlleredeTildelt):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
		return
	case err != nil:
		h.logger.Error("Failed to assign oppgave", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "assignment failed"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toOppgaveResponse(oppgave)})
}

// SendTilBeslutter handles POST /api/v1/oppgaver/:id/totrinnsvurdering
func (h *Handlers) SendTilBeslutter(c *gin.Context) {
	id, ok := h.oppgaveID(c)
	if !ok {
		return
	}

	var req TotrinnsvurderingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	oid, err := uuid.Parse(req.SaksbehandlerOID)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid saksbehandlerOid"})
		return
	}

	err = h.totrinnsService.SendTilBeslutter(c.Request.Context(), id, oid)
	switch {
	case errors.Is(err, service.ErrOppgaveIkkeAktiv):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
		return
	case err != nil:
		h.logger.Error("Failed to send oppgave to beslutter", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "totrinnsvurdering failed"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// Attester handles POST /api/v1/oppgaver/:id/attestering
func (h *Handlers) Attester(c *gin.Context) {
	h.beslutterKall(c, h.totrinnsService.Attester, "attestering failed")
}

// Retur handles POST /api/v1/oppgaver/:id/retur
func (h *Handlers) Retur(c *gin.Context) {
	h.beslutterKall(c, h.totrinnsService.Retur, "retur failed")
}

// beslutterKall parses the shared request shape of the beslutter endpoints
// and maps the service errors onto status codes.
func (h *Handlers) beslutterKall(c *gin.Context, kall func(ctx context.Context, oppgaveID int64, beslutterOID uuid.UUID) error, feilmelding string) {
	id, ok := h.oppgaveID(c)
	if !ok {
		return
	}

	var req TotrinnsvurderingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	oid, err := uuid.Parse(req.SaksbehandlerOID)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid saksbehandlerOid"})
		return
	}

	err = kall(c.Request.Context(), id, oid)
	switch {
	case errors.Is(err, service.ErrKreverToBesluttere):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
		return
	case errors.Is(err, service.ErrOppgaveIkkeAktiv):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
		return
	case err != nil:
		h.logger.Error("Beslutter operation failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: feilmelding})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// StuckKontekster handles GET /api/v1/internal/kontekster/stuck
func (h *Handlers) StuckKontekster(c *gin.Context) {
	bilde := h.overvaker.Snapshot()

	grense := time.Now().Add(-h.stuckEtter)
	kontekster, err := h.kontekstRepo.FinnStuck(c.Request.Context(), grense, 100)
	if err != nil {
		h.logger.Error("Failed to list stuck kontekster", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve kontekster"})
		return
	}

	respons := make([]StuckKontekstResponse, 0, len(kontekster))
	for _, k := range kontekster {
		respons = append(respons, StuckKontekstResponse{
			KontekstID:     k.ID.String(),
			HendelseID:     k.HendelseID.String(),
			UbesvarteBehov: k.UbesvarteBehov(),
			Opprettet:      k.Opprettet.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"snapshot":   bilde,
			"kontekster": respons,
		},
	})
}

func (h *Handlers) oppgaveID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid oppgave ID"})
		return 0, false
	}
	return id, true
}

// toOppgaveResponse converts domain entity to API response
func toOppgaveResponse(oppgave *entity.Oppgave) OppgaveResponse {
	resp := OppgaveResponse{
		ID:               oppgave.ID,
		VedtaksperiodeID: oppgave.VedtaksperiodeID.String(),
		UtbetalingID:     oppgave.UtbetalingID.String(),
		Status:           string(oppgave.Status),
		Egenskaper:       make([]string, 0, len(oppgave.Egenskaper)),
		PaVent:           oppgave.PaVent,
		Opprettet:        oppgave.Opprettet.Format(time.RFC3339),
		Oppdatert:        oppgave.Oppdatert.Format(time.RFC3339),
	}
	for _, e := range oppgave.Egenskaper {
		resp.Egenskaper = append(resp.Egenskaper, string(e))
	}
	if oppgave.Tildelt != nil {
		oid := oppgave.Tildelt.OID.String()
		ident := oppgave.Tildelt.Ident
		resp.TildeltOID = &oid
		resp.TildeltIdent = &ident
	}
	return resp
}
