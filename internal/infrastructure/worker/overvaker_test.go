package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/domain/entity"
)

type fakeKontekstRepo struct {
	mu    sync.Mutex
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
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stuck, nil
}

func (f *fakeKontekstRepo) TellStuck(ctx context.Context, eldreEnn time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stuck), nil
}

func TestKontekstOvervaker_SnapshotOppdateres(t *testing.T) {
	repo := &fakeKontekstRepo{stuck: []*entity.Kontekst{entity.NyKontekst(uuid.New())}}
	overvaker := NewKontekstOvervaker(OvervakerConfig{
		PollInterval: 10 * time.Millisecond,
		StuckEtter:   time.Minute,
		BatchSize:    10,
	}, repo, zap.NewNop())

	require.NoError(t, overvaker.Start(context.Background()))
	defer overvaker.Stop()

	assert.Eventually(t, func() bool {
		return overvaker.Snapshot().AntallStuck == 1
	}, time.Second, 10*time.Millisecond)
}

func TestKontekstOvervaker_StartToGangerFeiler(t *testing.T) {
	overvaker := NewKontekstOvervaker(DefaultOvervakerConfig(), &fakeKontekstRepo{}, zap.NewNop())

	require.NoError(t, overvaker.Start(context.Background()))
	defer overvaker.Stop()

	assert.Error(t, overvaker.Start(context.Background()))
}

func TestKontekstOvervaker_StopVenterPaLoopen(t *testing.T) {
	overvaker := NewKontekstOvervaker(OvervakerConfig{
		PollInterval: 5 * time.Millisecond,
		StuckEtter:   time.Minute,
		BatchSize:    10,
	}, &fakeKontekstRepo{}, zap.NewNop())

	require.NoError(t, overvaker.Start(context.Background()))
	overvaker.Stop()

	// Stop igjen er en no-op.
	overvaker.Stop()
}
