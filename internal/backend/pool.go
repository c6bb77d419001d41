package backend

import (
	"context"
	"sync"

	"github.com/jonesrussell/harvester/internal/logger"
)

// DefaultPoolCap is the default maximum number of concurrent sessions.
const DefaultPoolCap = 5

// Session is a reusable handle to an expensive fetch resource, e.g. a
// browser tab.
type Session interface {
	// Reset returns the session to a neutral blank state so it can be
	// reused. A session whose reset fails is destroyed, not pooled.
	Reset(ctx context.Context) error
	// Destroy releases the session's resources.
	Destroy()
}

// SessionFactory creates fresh sessions on demand.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// Pool manages a bounded set of reusable sessions. The cap bounds the
// total sessions checked out at any moment, not just the idle set: when
// every slot is taken, Acquire blocks until a session comes back or the
// context is cancelled. Reuse is LIFO. Every exit path frees the slot
// (release, discard, failed reset, failed creation), so the pool cannot
// deadlock on lost slots.
type Pool struct {
	factory SessionFactory
	logger  logger.Interface

	// slots is a counting semaphore over checked-out sessions.
	slots chan struct{}

	mu   sync.Mutex
	idle []Session
}

// NewPool creates a session pool with the given capacity. A cap of zero
// or less falls back to DefaultPoolCap.
func NewPool(cap int, factory SessionFactory, log logger.Interface) *Pool {
	if cap <= 0 {
		cap = DefaultPoolCap
	}
	return &Pool{
		factory: factory,
		logger:  log,
		slots:   make(chan struct{}, cap),
	}
}

// Acquire returns an idle session or creates a new one. When the pool is
// at capacity it blocks until a slot frees up or ctx is cancelled.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		session := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return session, nil
	}
	p.mu.Unlock()

	session, err := p.factory.NewSession(ctx)
	if err != nil {
		p.freeSlot()
		return nil, err
	}
	return session, nil
}

// Release resets the session, returns it to the idle set and frees its
// slot. A session that fails to reset is destroyed instead; the slot is
// freed either way. The idle set stays within the cap because at most
// cap sessions exist at once.
func (p *Pool) Release(ctx context.Context, session Session) {
	if session == nil {
		return
	}
	defer p.freeSlot()

	if err := session.Reset(ctx); err != nil {
		p.logger.Warn("Session reset failed, destroying", "error", err)
		session.Destroy()
		return
	}

	p.mu.Lock()
	p.idle = append(p.idle, session)
	p.mu.Unlock()
}

// Discard destroys a checked-out session without pooling it and frees
// its slot. For sessions known to be unusable.
func (p *Pool) Discard(session Session) {
	if session == nil {
		return
	}
	session.Destroy()
	p.freeSlot()
}

// Close destroys all idle sessions. Sessions still checked out are the
// responsibility of their holders.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, session := range idle {
		session.Destroy()
	}
}

// IdleCount reports the number of idle sessions currently retained.
func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *Pool) freeSlot() {
	<-p.slots
}
