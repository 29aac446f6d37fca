package scanner

import (
	"context"
	"sync"
	"sync/atomic"
)

// Token is a set-once cooperative stop signal shared by every worker of
// one scan session. Cancel is idempotent; workers are never forcibly
// terminated, they observe the flag and unwind.
type Token struct {
	once   sync.Once
	fired  atomic.Bool
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

func NewToken() *Token {
	ctx, cancel := context.WithCancel(context.Background())
	return &Token{
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Cancel requests a stop. Calls after the first are no-ops.
func (t *Token) Cancel() {
	t.once.Do(func() {
		t.fired.Store(true)
		close(t.done)
		t.cancel()
	})
}

// Cancelled reports whether a stop has been requested.
func (t *Token) Cancelled() bool {
	return t.fired.Load()
}

// Done is closed once the token fires.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Context is cancelled together with the token, for APIs that block on
// a context (rate limiters, timers).
func (t *Token) Context() context.Context {
	return t.ctx
}
