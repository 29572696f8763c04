package bus

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/domain/entity"
)

// MessageSource yields raw messages from the bus. Neste blocks until a
// message arrives, the context is cancelled or the source is exhausted;
// exhaustion is signalled with ErrKildeLukket.
type MessageSource interface {
	Neste(ctx context.Context) ([]byte, error)
}

// ErrKildeLukket signals that the source has no further messages.
var ErrKildeLukket = errors.New("meldingskilde lukket")

// Handterer processes one typed hendelse; the mediator implements it.
type Handterer interface {
	Handter(ctx context.Context, hendelse entity.Hendelse) error
}

// Consumer pulls raw messages off the bus, parses them and hands them to
// the mediator one at a time. Per-subject ordering is the transport's
// responsibility; the consumer itself is strictly serial.
type Consumer struct {
	source    MessageSource
	handterer Handterer
	logger    *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	isRunning bool
	done      chan struct{}
}

// NewConsumer creates the consume loop.
func NewConsumer(source MessageSource, handterer Handterer, logger *zap.Logger) *Consumer {
	return &Consumer{source: source, handterer: handterer, logger: logger}
}

// Start begins consuming in a background goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return errors.New("consumer kjører allerede")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.isRunning = true
	c.done = make(chan struct{})

	go c.loop(runCtx)
	c.logger.Info("Consumer startet")
	return nil
}

// Stop halts consumption and waits for the in-flight message to finish.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.cancel()
	done := c.done
	c.isRunning = false
	c.mu.Unlock()

	<-done
	c.logger.Info("Consumer stoppet")
}

// Name returns the worker name for identification
func (c *Consumer) Name() string {
	return "Consumer"
}

func (c *Consumer) loop(ctx context.Context) {
	defer close(c.done)

	for {
		raw, err := c.source.Neste(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrKildeLukket) {
				return
			}
			c.logger.Error("Henting fra meldingskilde feilet", zap.Error(err))
			continue
		}

		c.behandle(ctx, raw)
	}
}

// behandle parses and processes one raw message. Messages this system does
// not understand are skipped; processing errors are logged and the message
// given up on, redelivery is the transport's call.
func (c *Consumer) behandle(ctx context.Context, raw []byte) {
	hendelse, err := Parse(raw)
	if err != nil {
		if errors.Is(err, ErrUkjentHendelse) {
			return
		}
		c.logger.Error("Ugyldig melding forkastet", zap.Error(err))
		return
	}

	if err := c.handterer.Handter(ctx, hendelse); err != nil {
		c.logger.Error("Behandling av hendelse feilet",
			zap.String("hendelse", hendelse.Navn()),
			zap.String("hendelse_id", hendelse.HendelseID().String()),
			zap.Error(err))
	}
}
