package bus

import (
	"context"
	"sync"
)

// Kanal is an in-memory topic implementing both Transport and MessageSource.
// Everything published lands back on the same topic, the way a shared rapid
// works: every reader sees the whole stream and skips what it does not
// understand. It stands in for the external bus in development and tests.
type Kanal struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

// NyKanal creates an in-memory topic with the given buffer capacity.
func NyKanal(kapasitet int) *Kanal {
	return &Kanal{
		ch:   make(chan []byte, kapasitet),
		done: make(chan struct{}),
	}
}

// Publish puts one message on the topic. The key is ignored; an in-memory
// topic has a single partition and is ordered by construction.
func (k *Kanal) Publish(ctx context.Context, key string, melding []byte) error {
	kopi := append([]byte(nil), melding...)
	select {
	case k.ch <- kopi:
		return nil
	case <-k.done:
		return ErrKildeLukket
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Neste blocks until a message is available, the topic is closed or the
// context is cancelled.
func (k *Kanal) Neste(ctx context.Context) ([]byte, error) {
	select {
	case melding := <-k.ch:
		return melding, nil
	case <-k.done:
		return nil, ErrKildeLukket
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lukk shuts the topic; pending and future Neste calls return ErrKildeLukket.
func (k *Kanal) Lukk() {
	k.once.Do(func() { close(k.done) })
}

var (
	_ Transport     = (*Kanal)(nil)
	_ MessageSource = (*Kanal)(nil)
)
