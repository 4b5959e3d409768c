package worker

import (
	"context"

	audit "rctrack/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Append failures are
// reported to onError and never stop the loop.
type Worker struct {
	store   audit.Store
	inbox   <-chan audit.Event
	onError func(audit.Event, error)
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, onError func(audit.Event, error)) *Worker {
	if onError == nil {
		onError = func(audit.Event, error) {}
	}
	return &Worker{store: store, inbox: inbox, onError: onError}
}

// Run persists events until the inbox is closed (returning nil once drained) or ctx
// is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.onError(event, err)
			}
		}
	}
}
