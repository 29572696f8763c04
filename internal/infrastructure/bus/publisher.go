package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
)

// Transport sends one serialized message to the bus, keyed so replies for
// the same subject stay ordered.
type Transport interface {
	Publish(ctx context.Context, key string, melding []byte) error
}

// Publisher serializes outbound behov and envelopes onto the bus.
type Publisher struct {
	transport Transport
	logger    *zap.Logger
}

// NewPublisher creates the bus publisher.
func NewPublisher(transport Transport, logger *zap.Logger) *Publisher {
	return &Publisher{transport: transport, logger: logger}
}

var _ port.MeldingPublisher = (*Publisher)(nil)

// PubliserBehov sends the batch of unanswered behov as one message. All
// behov of a suspension travel together so the answering side can reply
// with a single behov_løsning addressed to the context.
func (p *Publisher) PubliserBehov(ctx context.Context, fodselsnummer string, behov []port.UtgaaendeBehov) error {
	if len(behov) == 0 {
		return nil
	}

	navn := make([]string, 0, len(behov))
	melding := map[string]any{
		"@id":           uuid.New().String(),
		"@event_name":   "behov",
		"@opprettet":    time.Now(),
		"fødselsnummer": fodselsnummer,
		"kontekstId":    behov[0].KontekstID.String(),
		"hendelseId":    behov[0].HendelseID.String(),
	}
	for _, b := range behov {
		navn = append(navn, b.Navn)
		if b.Parametre != nil {
			melding[b.Navn] = b.Parametre
		}
	}
	melding["@behov"] = navn

	raw, err := json.Marshal(melding)
	if err != nil {
		return fmt.Errorf("serialiser behov: %w", err)
	}
	if err := p.transport.Publish(ctx, fodselsnummer, raw); err != nil {
		return fmt.Errorf("publiser behov: %w", err)
	}

	p.logger.Info("Behov publisert",
		zap.Strings("behov", navn),
		zap.String("kontekst_id", behov[0].KontekstID.String()))
	return nil
}

// Publiser sends one outbound envelope.
func (p *Publisher) Publiser(ctx context.Context, melding port.UtgaaendeMelding) error {
	utgaaende := map[string]any{
		"@id":           uuid.New().String(),
		"@event_name":   melding.EventName,
		"@opprettet":    time.Now(),
		"fødselsnummer": melding.Fodselsnummer,
	}
	for k, v := range melding.Payload {
		utgaaende[k] = v
	}

	raw, err := json.Marshal(utgaaende)
	if err != nil {
		return fmt.Errorf("serialiser %s: %w", melding.EventName, err)
	}
	if err := p.transport.Publish(ctx, melding.Fodselsnummer, raw); err != nil {
		return fmt.Errorf("publiser %s: %w", melding.EventName, err)
	}

	p.logger.Info("Melding publisert", zap.String("event_name", melding.EventName))
	return nil
}
