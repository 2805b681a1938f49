package balancer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/velocity-9/v9-router/internal/component"
)

// Node is the capability a worker exposes to the balancer and the forwarder.
// *worker.Client implements it; tests substitute fakes.
type Node interface {
	BaseURL() string
	ListComponents(ctx context.Context) ([]component.Path, error)
	Forward(ctx context.Context, req component.Request) (status int, body []byte, err error)
}

type entry struct {
	counter atomic.Uint64
	workers []Node
}

// Index is the routing table: component path → the workers currently hosting
// it, with a per-entry counter for round-robin selection. The table is only
// ever replaced wholesale; the seq number detects lost-update races between
// concurrent rebuilds.
type Index struct {
	mu    sync.RWMutex
	seq   uint64
	table map[component.Path]*entry
}

func NewIndex() *Index {
	return &Index{table: map[component.Path]*entry{}}
}

func (ix *Index) SnapshotSeq() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.seq
}

// ReplaceIfSeq installs a freshly built table iff the index still carries the
// sequence number the rebuild started from. A mismatch means a concurrent
// rebuild won the race with data at least as fresh, so the loser's table is
// discarded. Paths with no workers are never installed. Entries are
// assembled before the write lock is taken.
func (ix *Index) ReplaceIfSeq(expected uint64, workers map[component.Path][]Node) bool {
	table := make(map[component.Path]*entry, len(workers))
	for p, ws := range workers {
		if len(ws) == 0 {
			continue
		}
		table[p] = &entry{workers: ws}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.seq != expected {
		return false
	}
	ix.seq++
	ix.table = table
	return true
}

// Select returns the next worker for path in round-robin order, or nil when
// the path is unknown. The entry counter only ever increments; wrap-around
// happens via the modulo here, never by reset.
func (ix *Index) Select(path component.Path) Node {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e, ok := ix.table[path]
	if !ok {
		return nil
	}
	i := e.counter.Add(1) - 1
	return e.workers[i%uint64(len(e.workers))]
}
