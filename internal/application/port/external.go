package port

import (
	"context"

	"github.com/garyjia/spend-approval/internal/domain/event"
)

// EventPublisher delivers domain events to interested parties after a
// state change has been committed
type EventPublisher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
	DispatchAsync(ctx context.Context, evt *event.Event)
}
