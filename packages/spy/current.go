package spy

import (
	"context"
	"sync/atomic"
)

var current atomic.Pointer[Spy]

type contextKey struct{}

// Current returns the most recently activated spy, or nil.
func Current() *Spy {
	return current.Load()
}

// Activate makes s the current spy.
func (s *Spy) Activate() {
	current.Store(s)
}

// Deactivate clears the current slot if it holds s.
func (s *Spy) Deactivate() {
	current.CompareAndSwap(s, nil)
}

// NewContext returns a copy of ctx carrying s. Parallel tests bind their own
// spy to request contexts this way instead of sharing the current slot.
func NewContext(ctx context.Context, s *Spy) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the spy bound to ctx, falling back to Current.
func FromContext(ctx context.Context) *Spy {
	if ctx != nil {
		if s, ok := ctx.Value(contextKey{}).(*Spy); ok && s != nil {
			return s
		}
	}
	return Current()
}
