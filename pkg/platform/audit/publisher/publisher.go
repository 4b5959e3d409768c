// Package publisher fronts an audit store with optional asynchronous buffering so
// request paths never wait on a slow sink.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"rctrack/pkg/domain"
	audit "rctrack/pkg/platform/audit"
	"rctrack/pkg/platform/audit/worker"
)

// ErrBufferFull is returned by Emit when the async buffer cannot take another event.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

// ErrNotListable is returned by List when the store cannot read events back.
var ErrNotListable = errors.New("audit store does not support listing")

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	bufferSize int
	buffer     chan audit.Event
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission through a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.buffer = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.buffer, func(e audit.Event, err error) {
			p.logger.Error("failed to persist audit event",
				"action", e.Action,
				"subject", e.Subject,
				"request_id", e.RequestID,
				"error", err,
			)
		})
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records event, stamping the time when unset. In async mode it never blocks:
// a full buffer drops the event and returns ErrBufferFull.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// List returns the events recorded for userID when the store supports reads.
func (p *Publisher) List(ctx context.Context, userID domain.UserID) ([]audit.Event, error) {
	lister, ok := p.store.(audit.Lister)
	if !ok {
		return nil, ErrNotListable
	}
	return lister.ListByUser(ctx, userID)
}

// Close stops accepting events and waits for buffered ones to be persisted.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
}
