// Package activity is the fire-and-forget audit side channel. The lifecycle
// manager reports every template mutation here; failures are logged locally
// by the caller and never turn a successful mutation into an error.
package activity

import "context"

// Entry describes one recorded action.
type Entry struct {
	Action      string
	EntityType  string
	EntityID    string
	WorkspaceID string
	ActorID     string
	Details     map[string]any
}

// Logger receives activity entries. Implementations should be cheap;
// expensive delivery belongs behind a queue.
type Logger interface {
	LogActivity(ctx context.Context, entry Entry) error
}

// Func adapts a function into a Logger.
type Func func(ctx context.Context, entry Entry) error

// LogActivity calls the underlying function.
func (fn Func) LogActivity(ctx context.Context, entry Entry) error {
	return fn(ctx, entry)
}

// Nop discards every entry.
type Nop struct{}

// LogActivity does nothing.
func (Nop) LogActivity(context.Context, Entry) error { return nil }
