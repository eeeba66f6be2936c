package interfaces

import "context"

// Notifier delivers a plain-text report to an operator. Best effort: callers
// log failures instead of surfacing them.
type Notifier interface {
	Send(ctx context.Context, body, recipient string) error
}
