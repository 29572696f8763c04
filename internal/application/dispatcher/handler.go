package dispatcher

import (
	"context"

	"github.com/karl-run/spesialist/internal/domain/event"
)

// Handler processes domain events after the producing transaction has
// committed.
type Handler func(ctx context.Context, evt event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
