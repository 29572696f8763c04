package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
)

// OvervakerConfig holds configuration for the stuck-context monitor.
type OvervakerConfig struct {
	PollInterval time.Duration
	StuckEtter   time.Duration
	BatchSize    int
}

// DefaultOvervakerConfig returns default configuration
func DefaultOvervakerConfig() OvervakerConfig {
	return OvervakerConfig{
		PollInterval: time.Minute,
		StuckEtter:   30 * time.Minute,
		BatchSize:    50,
	}
}

// Tilstandsbilde is a snapshot of the monitor's last sweep, served by the
// ops endpoint.
type Tilstandsbilde struct {
	AntallStuck int       `json:"antallStuck"`
	SistSjekket time.Time `json:"sistSjekket"`
	SisteFeil   string    `json:"sisteFeil,omitempty"`
}

// KontekstOvervaker periodically counts command contexts that suspended and
// never got their answers. It only observes and reports; a stuck context is
// resumed by the missing løsning arriving, never by this worker.
type KontekstOvervaker struct {
	config       OvervakerConfig
	kontekstRepo port.KontekstRepository
	logger       *zap.Logger

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	done      chan struct{}
	bilde     Tilstandsbilde
}

// NewKontekstOvervaker creates a new stuck-context monitor
func NewKontekstOvervaker(config OvervakerConfig, kontekstRepo port.KontekstRepository, logger *zap.Logger) *KontekstOvervaker {
	return &KontekstOvervaker{
		config:       config,
		kontekstRepo: kontekstRepo,
		logger:       logger,
	}
}

// Start begins the polling loop in a background goroutine.
func (o *KontekstOvervaker) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.isRunning {
		return fmt.Errorf("kontekstovervåker kjører allerede")
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.isRunning = true
	o.done = make(chan struct{})

	go o.pollLoop()

	o.logger.Info("KontekstOvervaker startet",
		zap.Duration("poll_interval", o.config.PollInterval),
		zap.Duration("stuck_etter", o.config.StuckEtter))
	return nil
}

// Stop halts the loop and waits for the in-flight sweep to finish.
func (o *KontekstOvervaker) Stop() {
	o.mu.Lock()
	if !o.isRunning {
		o.mu.Unlock()
		return
	}
	o.isRunning = false
	done := o.done
	o.mu.Unlock()

	o.cancel()
	<-done
	o.logger.Info("KontekstOvervaker stoppet")
}

// Name returns the worker name for identification
func (o *KontekstOvervaker) Name() string {
	return "KontekstOvervaker"
}

// Snapshot returns the result of the last sweep.
func (o *KontekstOvervaker) Snapshot() Tilstandsbilde {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.bilde
}

func (o *KontekstOvervaker) pollLoop() {
	defer close(o.done)

	ticker := time.NewTicker(o.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.sjekk()
		}
	}
}

func (o *KontekstOvervaker) sjekk() {
	grense := time.Now().Add(-o.config.StuckEtter)

	antall, err := o.kontekstRepo.TellStuck(o.ctx, grense)
	if err != nil {
		o.logger.Error("Telling av stuck kontekster feilet", zap.Error(err))
		o.mu.Lock()
		o.bilde.SisteFeil = err.Error()
		o.bilde.SistSjekket = time.Now()
		o.mu.Unlock()
		return
	}

	if antall > 0 {
		konteksterne, err := o.kontekstRepo.FinnStuck(o.ctx, grense, o.config.BatchSize)
		if err != nil {
			o.logger.Error("Oppslag av stuck kontekster feilet", zap.Error(err))
		} else {
			for _, k := range konteksterne {
				o.logger.Warn("Kommandokontekst venter fortsatt på løsning",
					zap.String("kontekst_id", k.ID.String()),
					zap.String("hendelse_id", k.HendelseID.String()),
					zap.Strings("ubesvarte_behov", k.UbesvarteBehov()),
					zap.Time("opprettet", k.Opprettet))
			}
		}
	}

	o.mu.Lock()
	o.bilde = Tilstandsbilde{AntallStuck: antall, SistSjekket: time.Now()}
	o.mu.Unlock()
}
