package execengine

import (
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// shutdownRegistry holds one cancellation signal per root execution.
// Each execution task watches its root's signal alongside its runtime
// wait, so cancelling the root cascades to every descendant sharing
// that root_id.
type shutdownRegistry struct {
	mu      sync.Mutex
	signals map[domain.ExecutionID]chan struct{}
}

func newShutdownRegistry() *shutdownRegistry {
	return &shutdownRegistry{signals: make(map[domain.ExecutionID]chan struct{})}
}

// signalFor returns the channel for rootID, creating it if this is the
// first execution under that root.
func (r *shutdownRegistry) signalFor(rootID domain.ExecutionID) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.signals[rootID]
	if !ok {
		ch = make(chan struct{})
		r.signals[rootID] = ch
	}
	return ch
}

// cancel closes rootID's signal, waking every descendant watching it.
// Safe to call more than once.
func (r *shutdownRegistry) cancel(rootID domain.ExecutionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.signals[rootID]
	if !ok {
		ch = make(chan struct{})
		r.signals[rootID] = ch
	}
	select {
	case <-ch:
		// already cancelled
	default:
		close(ch)
	}
}

// forget drops rootID's entry once the root execution has reached a
// terminal state and every descendant has observed it.
func (r *shutdownRegistry) forget(rootID domain.ExecutionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.signals, rootID)
}
