package event

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Handler reacts to one published event.
type Handler func(ctx context.Context, e Event)

type subscription struct {
	id int
	fn Handler
}

// Bus dispatches events to subscribers. A nil *Bus drops everything.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[Hook][]subscription
	log  *zap.Logger
}

// NewBus constructs an empty bus.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{subs: map[Hook][]subscription{}, log: log}
}

// Subscribe registers fn for hook h and returns a function that removes it.
func (b *Bus) Subscribe(h Hook, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.subs[h] = append(b.subs[h], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[h]
			for i, s := range list {
				if s.id == id {
					b.subs[h] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}
}

// On subscribes a handler typed to one event struct.
func On[E Event](b *Bus, fn func(ctx context.Context, e E)) (unsubscribe func()) {
	var zero E
	return b.Subscribe(zero.Hook(), func(ctx context.Context, e Event) {
		if typed, ok := e.(E); ok {
			fn(ctx, typed)
		}
	})
}

// Has reports whether anything listens on h.
func (b *Bus) Has(h Hook) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[h]) > 0
}

// Publish runs every subscriber of e's hook in order. Each delivery gets a
// fresh event id in ctx. A panicking subscriber is logged and skipped; it
// never reaches the publisher.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	list := append([]subscription(nil), b.subs[e.Hook()]...)
	b.mu.RUnlock()
	if len(list) == 0 {
		return
	}

	id, err := uuid.NewV4()
	if err == nil {
		ctx = context.WithValue(ctx, eventIDKey{}, id)
	}
	for _, s := range list {
		b.deliver(ctx, e, s.fn)
	}
}

func (b *Bus) deliver(ctx context.Context, e Event, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("hook panic",
				zap.String("hook", string(e.Hook())),
				zap.Any("reason", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	fn(ctx, e)
}

type eventIDKey struct{}

// IDFromContext returns the id of the event being delivered, if any.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(eventIDKey{}).(uuid.UUID)
	return id, ok
}
