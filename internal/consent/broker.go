// Package consent implements the human-approval handshake for plugin
// installs. Each waiting install operation owns a dedicated one-shot
// response slot keyed by a request identifier, so a decision can never
// be misdelivered to the wrong operation.
package consent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrTimedOut is returned by Await when no decision arrives
	// within the configured window.
	ErrTimedOut = errors.New("CONSENT_TIMEOUT: no install decision arrived in time")

	// ErrNoSuchRequest is returned by SubmitTo for an unknown or
	// already-decided request identifier.
	ErrNoSuchRequest = errors.New("CONSENT_DELIVER: no pending consent request")
)

// Notifier is told when an install operation starts waiting for a
// decision. The front-end is expected to prompt the user and echo the
// request identifier back through SubmitTo (or call Submit, which
// routes to the oldest waiter).
type Notifier interface {
	ApprovalNeeded(requestID uint64)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(requestID uint64)

func (f NotifierFunc) ApprovalNeeded(id uint64) { f(id) }

// Broker coordinates decisions between the front-end and waiting
// install operations. When no operation is waiting, one submitted
// decision is buffered for the next Await; a further unconsumed
// submission overwrites it.
type Broker struct {
	mu        sync.Mutex
	nextID    uint64
	slots     map[uint64]chan bool
	order     []uint64
	buffered  *bool
	notifiers []Notifier
}

func NewBroker() *Broker {
	return &Broker{slots: make(map[uint64]chan bool)}
}

// Subscribe registers a notifier for future approval requests.
func (b *Broker) Subscribe(n Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifiers = append(b.notifiers, n)
}

// Await registers a new request and blocks until a decision is
// delivered for it, the context is cancelled, or timeout elapses.
// A timeout of 0 waits forever. A decision buffered from an earlier
// Submit resolves the request immediately without notifying.
func (b *Broker) Await(ctx context.Context, timeout time.Duration) (bool, error) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	slot := make(chan bool, 1)
	notify := false
	if b.buffered != nil {
		slot <- *b.buffered
		b.buffered = nil
	} else {
		b.slots[id] = slot
		b.order = append(b.order, id)
		notify = true
	}
	notifiers := append([]Notifier(nil), b.notifiers...)
	b.mu.Unlock()

	if notify {
		for _, n := range notifiers {
			n.ApprovalNeeded(id)
		}
	}
	defer b.forget(id)

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case approved := <-slot:
		return approved, nil
	case <-expired:
		return false, ErrTimedOut
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Submit delivers a decision to the oldest waiting request. With no
// waiter the decision is buffered for the next Await.
func (b *Broker) Submit(approved bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.order) > 0 {
		id := b.order[0]
		b.order = b.order[1:]
		slot, ok := b.slots[id]
		if !ok {
			continue
		}
		delete(b.slots, id)
		slot <- approved
		return nil
	}
	b.buffered = &approved
	return nil
}

// SubmitTo delivers a decision to a specific pending request.
func (b *Broker) SubmitTo(id uint64, approved bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	slot, ok := b.slots[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNoSuchRequest, id)
	}
	b.drop(id)
	slot <- approved
	return nil
}

// Pending reports how many requests are currently waiting.
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

func (b *Broker) forget(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drop(id)
}

// drop must be called with b.mu held.
func (b *Broker) drop(id uint64) {
	delete(b.slots, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
