package balancer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/velocity-9/v9-router/internal/component"
	"github.com/velocity-9/v9-router/internal/platform/logger"
)

// DefaultRefreshInterval is sensitive to how quickly the deployment manager
// makes changes.
const DefaultRefreshInterval = 5 * time.Second

// LoadBalancer owns the fixed worker set and the routing index, and keeps
// the index fresh: a background rebuild every RefreshInterval plus on-demand
// rebuilds via PickAfterRefresh.
type LoadBalancer struct {
	workers  []Node
	index    *Index
	interval time.Duration
	log      *logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// New attempts one synchronous refresh so the index is usually populated
// before the first request arrives; a failure there is only a warning and
// the background refresher will fill the index in later.
func New(workers []Node, interval time.Duration, log *logger.Logger) *LoadBalancer {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	lb := &LoadBalancer{
		workers:  workers,
		index:    NewIndex(),
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
	}

	if err := lb.Refresh(context.Background()); err != nil {
		log.Warn("initial load balancer refresh failed", "error", err)
	}

	go lb.refreshLoop()

	return lb
}

// Close stops the background refresher so it cannot outlive the owner.
func (lb *LoadBalancer) Close() {
	lb.stopOnce.Do(func() { close(lb.stop) })
}

func (lb *LoadBalancer) refreshLoop() {
	ticker := time.NewTicker(lb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-lb.stop:
			return
		case <-ticker.C:
			if err := lb.Refresh(context.Background()); err != nil {
				lb.log.Warn("load balancer refresh failed", "error", err)
			}
		}
	}
}

// Pick returns a worker currently hosting path, or nil. It never refreshes.
func (lb *LoadBalancer) Pick(path component.Path) Node {
	return lb.index.Select(path)
}

// PickAfterRefresh rebuilds the index from ground truth and then selects.
func (lb *LoadBalancer) PickAfterRefresh(ctx context.Context, path component.Path) (Node, error) {
	if err := lb.Refresh(ctx); err != nil {
		return nil, err
	}
	return lb.index.Select(path), nil
}

// Refresh interrogates every worker concurrently and swaps in the rebuilt
// table. Any single worker failing fails the whole refresh and the new table
// is discarded; partial updates are not supported. All I/O happens before
// the index write lock is touched. Losing the seq race is not an error:
// whoever won did the same work with data at least as fresh.
func (lb *LoadBalancer) Refresh(ctx context.Context) error {
	seq := lb.index.SnapshotSeq()

	lists := make([][]component.Path, len(lb.workers))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range lb.workers {
		i, w := i, w
		g.Go(func() error {
			paths, err := w.ListComponents(gctx)
			if err != nil {
				return err
			}
			lists[i] = paths
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	table := make(map[component.Path][]Node)
	for i, w := range lb.workers {
		for _, p := range lists[i] {
			table[p] = append(table[p], w)
		}
	}

	lb.index.ReplaceIfSeq(seq, table)
	return nil
}
