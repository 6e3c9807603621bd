package memberships_services

import (
	"sync"

	memberships_interfaces "memberledger/internal/features/memberships/interfaces"

	"github.com/google/uuid"
)

type pendingChangeKey struct {
	variant  string
	parentID uuid.UUID
}

// PendingChanges collects the change notifications of services bound to a
// caller transaction with WithTx. Call Flush after the transaction commits,
// or Discard after a rollback. Listeners must not hear about rows another
// connection cannot see yet.
type PendingChanges struct {
	mu        sync.Mutex
	order     []pendingChangeKey
	listeners map[pendingChangeKey][]memberships_interfaces.MembershipChangeListener
}

func NewPendingChanges() *PendingChanges {
	return &PendingChanges{
		listeners: make(map[pendingChangeKey][]memberships_interfaces.MembershipChangeListener),
	}
}

func (p *PendingChanges) add(
	listeners []memberships_interfaces.MembershipChangeListener,
	variant string,
	parentID uuid.UUID,
) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pendingChangeKey{variant: variant, parentID: parentID}
	if _, ok := p.listeners[key]; ok {
		return
	}

	p.order = append(p.order, key)
	p.listeners[key] = listeners
}

// Len reports how many parents are waiting to be flushed.
func (p *PendingChanges) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.order)
}

// Flush notifies listeners once per changed parent and empties the set.
func (p *PendingChanges) Flush() {
	p.mu.Lock()
	order, listeners := p.order, p.listeners
	p.order = nil
	p.listeners = make(map[pendingChangeKey][]memberships_interfaces.MembershipChangeListener)
	p.mu.Unlock()

	for _, key := range order {
		for _, listener := range listeners[key] {
			listener.OnMembershipsChanged(key.variant, key.parentID)
		}
	}
}

// Discard drops every pending notification.
func (p *PendingChanges) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.order = nil
	p.listeners = make(map[pendingChangeKey][]memberships_interfaces.MembershipChangeListener)
}
