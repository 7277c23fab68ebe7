package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/quorum/internal/raft"
)

// FailoverDriver stops the leader and waits for another node to take over.
type FailoverDriver struct {
	h *Harness
}

// StopLeader stops the tracked leader and returns once a different node
// reports leadership, or fails with ErrFailoverTimeout when ctx is done
// first. The stopped node stays in the harness until teardown.
func (f *FailoverDriver) StopLeader(ctx context.Context) error {
	h := f.h

	old := h.tracker.Leader()
	if old == nil {
		return newError("stop leader", ErrNoLeaderElected, nil)
	}

	begin := time.Now()
	elected := make(chan *Node, 1)
	var once sync.Once

	var subs []*raft.Subscription
	defer func() {
		for _, sub := range subs {
			sub.Cancel()
		}
	}()

	for _, n := range h.Nodes() {
		if n == old {
			continue
		}
		n := n
		subs = append(subs, n.OnStatusChange(func(s raft.Status) {
			if s != raft.StatusLeader {
				return
			}
			h.tracker.set(n)
			once.Do(func() { elected <- n })
		}))
	}

	h.logger.Info("stopping leader", "node", old.ID())
	h.goTracked(func() {
		if err := old.Stop(); err != nil {
			h.logger.Warn("leader stop failed", "node", old.ID(), "error", err)
		}
	})

	select {
	case n := <-elected:
		d := time.Since(begin)
		h.metrics.recordFailover(resultSuccess, d)
		h.logger.Info("leadership moved", "from", old.ID(), "to", n.ID(), "duration", d)
		return nil
	case <-ctx.Done():
		h.metrics.recordFailover(resultTimeout, time.Since(begin))
		return newError("stop leader", ErrFailoverTimeout, ctx.Err())
	}
}
