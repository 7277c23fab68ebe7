package cluster

import (
	"sync"
	"sync/atomic"

	"github.com/KilimcininKorOglu/quorum/internal/raft"
)

// LeaderTracker keeps the last node that reported leadership. Status
// callbacks update it with a single atomic store; nothing is locked across
// engine calls.
type LeaderTracker struct {
	leader  atomic.Pointer[Node]
	changes func()

	mu   sync.Mutex
	subs map[*Node]*raft.Subscription
}

// NewLeaderTracker creates a tracker. onChange, if set, runs every time
// the tracked leader becomes a different node.
func NewLeaderTracker(onChange func()) *LeaderTracker {
	return &LeaderTracker{
		changes: onChange,
		subs:    make(map[*Node]*raft.Subscription),
	}
}

// Attach subscribes to n's status reports. Attaching a node twice returns
// the existing subscription.
func (t *LeaderTracker) Attach(n *Node) *raft.Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sub, ok := t.subs[n]; ok {
		return sub
	}
	sub := n.OnStatusChange(func(s raft.Status) {
		if s == raft.StatusLeader {
			t.set(n)
		}
	})
	t.subs[n] = sub
	return sub
}

// Detach cancels sub. Detaching twice is a no-op.
func (t *LeaderTracker) Detach(sub *raft.Subscription) {
	if sub == nil {
		return
	}
	sub.Cancel()

	t.mu.Lock()
	defer t.mu.Unlock()
	for n, s := range t.subs {
		if s == sub {
			delete(t.subs, n)
		}
	}
}

// DetachAll cancels every subscription.
func (t *LeaderTracker) DetachAll() {
	t.mu.Lock()
	subs := t.subs
	t.subs = make(map[*Node]*raft.Subscription)
	t.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

// Attached returns the number of nodes with a live subscription.
func (t *LeaderTracker) Attached() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Leader returns the last node observed as leader, or nil.
func (t *LeaderTracker) Leader() *Node {
	return t.leader.Load()
}

// Observe records n as leader if it currently reports leadership.
func (t *LeaderTracker) Observe(n *Node) bool {
	if n.Status() != raft.StatusLeader {
		return false
	}
	t.set(n)
	return true
}

// Reset forgets the tracked leader.
func (t *LeaderTracker) Reset() {
	t.leader.Store(nil)
}

func (t *LeaderTracker) set(n *Node) {
	if old := t.leader.Swap(n); old != n && t.changes != nil {
		t.changes()
	}
}
