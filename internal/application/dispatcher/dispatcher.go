package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/status"
)

// Dispatcher fans status changes out to registered handlers. It implements
// port.EventPublisher so the status and progression services can publish
// without knowing who listens (mail, delivery, downstream sync).
type Dispatcher interface {
	port.EventPublisher

	// Subscribe registers a handler for an event kind
	Subscribe(kind status.EventKind, handler Handler)

	// SubscribeNamed registers a handler with a name for debugging
	SubscribeNamed(kind status.EventKind, name string, handler Handler)

	// SubscribeAll registers a handler for every event kind
	SubscribeAll(name string, handler Handler)

	// Unsubscribe removes a handler by name
	Unsubscribe(kind status.EventKind, name string)

	// PublishAsync sends a change to handlers without waiting for them
	PublishAsync(ctx context.Context, change port.StatusChange)

	// ListHandlers returns registered handlers for an event kind
	ListHandlers(kind status.EventKind) []HandlerInfo

	// Close shuts down the dispatcher and waits for async handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// wildcardKind subscribes a handler to every change.
const wildcardKind = status.EventKind("*")

type changeDispatcher struct {
	mu       sync.RWMutex
	handlers map[status.EventKind][]HandlerInfo
	logger   Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*changeDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *changeDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new status-change dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &changeDispatcher{
		handlers: make(map[status.EventKind][]HandlerInfo),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Subscribe registers a handler with an auto-generated name
func (d *changeDispatcher) Subscribe(kind status.EventKind, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := fmt.Sprintf("handler-%d", len(d.handlers[kind]))
	d.register(kind, name, handler)
}

// SubscribeNamed registers a handler with a specific name for debugging
func (d *changeDispatcher) SubscribeNamed(kind status.EventKind, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.register(kind, name, handler)
}

// register appends a handler. Callers must hold d.mu.
func (d *changeDispatcher) register(kind status.EventKind, name string, handler Handler) {
	d.handlers[kind] = append(d.handlers[kind], HandlerInfo{
		Name:    name,
		Handler: handler,
	})

	if d.logger != nil {
		d.logger.Info("Handler registered",
			"event_kind", kind,
			"handler_name", name,
		)
	}
}

// SubscribeAll registers a handler that receives every change
func (d *changeDispatcher) SubscribeAll(name string, handler Handler) {
	d.SubscribeNamed(wildcardKind, name, handler)
}

// Unsubscribe removes a handler by name
func (d *changeDispatcher) Unsubscribe(kind status.EventKind, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	handlers := d.handlers[kind]
	filtered := make([]HandlerInfo, 0, len(handlers))
	for _, h := range handlers {
		if h.Name != name {
			filtered = append(filtered, h)
		}
	}
	d.handlers[kind] = filtered

	if d.logger != nil {
		d.logger.Info("Handler unregistered",
			"event_kind", kind,
			"handler_name", name,
		)
	}
}

// Publish sends a change to all registered handlers synchronously.
// Returns the first error encountered; handlers run in order.
func (d *changeDispatcher) Publish(ctx context.Context, change port.StatusChange) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	handlers := d.handlersFor(change.Event)

	if d.logger != nil {
		d.logger.Info("Dispatching status change",
			"event_kind", change.Event,
			"document_id", change.DocumentID,
			"handler_count", len(handlers),
		)
	}

	for _, info := range handlers {
		if err := d.safeExecute(ctx, change, info); err != nil {
			if d.logger != nil {
				d.logger.Error("Handler error",
					"event_kind", change.Event,
					"document_id", change.DocumentID,
					"handler_name", info.Name,
					"error", err,
				)
			}
			return fmt.Errorf("handler %s failed: %w", info.Name, err)
		}
	}

	return nil
}

// PublishAsync sends a change to handlers without waiting for them
func (d *changeDispatcher) PublishAsync(ctx context.Context, change port.StatusChange) {
	if d.closed.Load() {
		if d.logger != nil {
			d.logger.Error("Cannot dispatch async, dispatcher is closed",
				"event_kind", change.Event,
				"document_id", change.DocumentID,
			)
		}
		return
	}

	handlers := d.handlersFor(change.Event)

	for _, info := range handlers {
		d.wg.Add(1)
		go func(h HandlerInfo) {
			defer d.wg.Done()

			if err := d.safeExecute(ctx, change, h); err != nil {
				if d.logger != nil {
					d.logger.Error("Async handler error",
						"event_kind", change.Event,
						"document_id", change.DocumentID,
						"handler_name", h.Name,
						"error", err,
					)
				}
			}
		}(info)
	}
}

// ListHandlers returns registered handlers for an event kind
func (d *changeDispatcher) ListHandlers(kind status.EventKind) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	handlers := d.handlers[kind]
	result := make([]HandlerInfo, len(handlers))
	for i, h := range handlers {
		result[i] = HandlerInfo{
			Name:        h.Name,
			Description: h.Description,
		}
	}
	return result
}

// Close shuts down the dispatcher and waits for async handlers to complete
func (d *changeDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	d.wg.Wait()

	if d.logger != nil {
		d.logger.Info("Dispatcher closed")
	}
	return nil
}

func (d *changeDispatcher) handlersFor(kind status.EventKind) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	specific := d.handlers[kind]
	wildcard := d.handlers[wildcardKind]
	if len(wildcard) == 0 {
		return specific
	}

	combined := make([]HandlerInfo, 0, len(specific)+len(wildcard))
	combined = append(combined, specific...)
	combined = append(combined, wildcard...)
	return combined
}

// safeExecute runs a handler, converting panics into errors
func (d *changeDispatcher) safeExecute(ctx context.Context, change port.StatusChange, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return info.Handler(ctx, change)
}
