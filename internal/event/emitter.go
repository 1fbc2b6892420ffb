package event

import (
	"context"
	"sync"
)

// Emitter delivers pipeline events to the caller.
type Emitter interface {
	Emit(ev Event)
}

type emitterKey struct{}

// WithEmitter attaches an emitter to the context.
func WithEmitter(ctx context.Context, emitter Emitter) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, emitterKey{}, emitter)
}

// EmitterFrom retrieves the emitter from context, or returns a no-op emitter.
func EmitterFrom(ctx context.Context) Emitter {
	if ctx != nil {
		if e, ok := ctx.Value(emitterKey{}).(Emitter); ok && e != nil {
			return e
		}
	}
	return noopEmitter{}
}

type noopEmitter struct{}

func (noopEmitter) Emit(Event) {}

// ChannelEmitter pushes events onto a single ordered channel. The send
// blocks when the channel is momentarily full; event loss is not acceptable
// since the final event closes the run.
type ChannelEmitter struct {
	Ch chan<- Event
}

func (e *ChannelEmitter) Emit(ev Event) {
	e.Ch <- ev
}

// CollectingEmitter records events in arrival order. Test helper; safe for
// concurrent section workers.
type CollectingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (e *CollectingEmitter) Emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *CollectingEmitter) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}
