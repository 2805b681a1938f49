package forward

import (
	"bytes"
	"context"

	"github.com/velocity-9/v9-router/internal/balancer"
	"github.com/velocity-9/v9-router/internal/component"
	"github.com/velocity-9/v9-router/internal/platform/logger"
	"github.com/velocity-9/v9-router/internal/routererr"
)

// staleSentinel marks a 404 that means "this worker does not host this
// component" rather than an application-level not-found from the component
// itself. Byte-for-byte, case-sensitive prefix match.
var staleSentinel = []byte("v9: worker 404")

// Response is a worker's answer, relayed to the client unchanged.
type Response struct {
	Status int
	Body   []byte
}

// Forwarder implements the end-to-end forwarding policy on top of the load
// balancer: select, forward, and on evidence of stale routing data refresh
// and retry at most once, against whichever worker the refreshed index
// selects (which can be the same worker if it is still listed).
type Forwarder struct {
	lb  *balancer.LoadBalancer
	log *logger.Logger
}

func New(lb *balancer.LoadBalancer, log *logger.Logger) *Forwarder {
	return &Forwarder{lb: lb, log: log}
}

// Forward issues at most two worker calls per request.
func (f *Forwarder) Forward(ctx context.Context, req component.Request) (*Response, error) {
	w := f.lb.Pick(req.Path)
	if w == nil {
		// An index miss gets one on-demand refresh before we give up. A
		// refresh failure here just means we still have no route.
		picked, err := f.lb.PickAfterRefresh(ctx, req.Path)
		if err != nil || picked == nil {
			if err != nil {
				f.log.Warn("on-demand refresh failed on index miss", "component", req.Path.String(), "error", err)
			}
			return nil, routererr.PathNotFound(req.Path.String())
		}
		w = picked
	}

	status, body, err := w.Forward(ctx, req)
	if err != nil {
		return nil, err
	}

	if status != 404 || !bytes.HasPrefix(body, staleSentinel) {
		return &Response{Status: status, Body: body}, nil
	}

	// The sentinel means our routing entry was stale. PickAfterRefresh has
	// just observed ground truth from every worker, so one retry suffices;
	// if it cannot produce a worker, the first answer stands.
	f.log.Debug("stale routing data detected", "component", req.Path.String(), "worker", w.BaseURL())

	w2, err := f.lb.PickAfterRefresh(ctx, req.Path)
	if err != nil || w2 == nil {
		return &Response{Status: status, Body: body}, nil
	}

	status2, body2, err := w2.Forward(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Response{Status: status2, Body: body2}, nil
}
