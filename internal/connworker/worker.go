// Package connworker implements the connection worker: a per-CPU worker
// owning one listening socket, accepting connections and either computing
// responses inline (joined mode) or forwarding requests to a compute
// worker pool (split mode).
package connworker

import (
	"context"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/coreloop/qhttpd/internal/affinity"
	"github.com/coreloop/qhttpd/internal/buffer"
	"github.com/coreloop/qhttpd/internal/compute"
	"github.com/coreloop/qhttpd/internal/datapath"
	"github.com/coreloop/qhttpd/internal/metrics"
	"github.com/coreloop/qhttpd/internal/policy"
	"github.com/coreloop/qhttpd/internal/registry"
	"github.com/coreloop/qhttpd/internal/reqres"
)

// Worker owns one listening socket and accepts connections onto it. Each
// accepted connection is handled on its own goroutine, reading and
// answering requests off it in a loop until the client closes it or a
// transport error occurs; the descriptor is re-armed for another read
// after every response, never closed after just one.
type Worker struct {
	ID       int
	dp       *datapath.Datapath
	ListenQD datapath.QD
	reg      *registry.Registry
	router   *policy.Router // nil in joined mode
	split    bool
	fileDir  string
	bufs     *buffer.Pool
	tracker  *Pending // unused in joined mode
	log      zerolog.Logger
	m        *metrics.Registry
}

// New builds a connection worker. router and tracker must be non-nil when
// split is true; both are unused in joined mode.
func New(id int, dp *datapath.Datapath, listenQD datapath.QD, reg *registry.Registry, router *policy.Router, tracker *Pending, split bool, fileDir string, bufs *buffer.Pool, log zerolog.Logger, m *metrics.Registry) *Worker {
	return &Worker{
		ID: id, dp: dp, ListenQD: listenQD, reg: reg, router: router, tracker: tracker, split: split,
		fileDir: fileDir, bufs: bufs, log: log.With().Int("conn_worker", id).Logger(), m: m,
	}
}

// Bind creates, binds and listens a stream socket on addr, returning the
// resulting descriptor for a connection worker to accept on.
func Bind(dp *datapath.Datapath, addr string) (datapath.QD, error) {
	qd := dp.NewSocket()
	if err := dp.Bind(qd, addr); err != nil {
		return 0, err
	}
	if err := dp.Listen(qd, 128); err != nil {
		return 0, err
	}
	return qd, nil
}

// Run pins the calling goroutine's OS thread to cpuID and accepts
// connections until ctx is cancelled or the listening socket is closed.
func (w *Worker) Run(ctx context.Context, cpuID int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if cpuID >= 0 {
		if err := affinity.SetAffinity(cpuID); err != nil {
			w.log.Warn().Err(err).Int("cpu", cpuID).Msg("failed to pin connection worker thread")
		}
	}

	notify := make(chan datapath.Completion, 1)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.dp.SubmitAccept(w.ListenQD, notify)
		c := datapath.Wait(notify)
		if c.Err != nil {
			if c.Err == datapath.ErrClosed {
				return
			}
			w.log.Error().Err(c.Err).Msg("accept failed")
			continue
		}

		w.m.InflightConns.Inc()
		go func(connQD datapath.QD) {
			defer w.m.InflightConns.Dec()
			w.handleConn(connQD)
		}(c.NewQD)
	}
}

// handleConn loops reading and answering requests off connQD until the
// client closes it or a transport error makes it unusable. The descriptor
// is re-armed for another read after every response pushed to it, so the
// number of responses pushed before it finally closes equals the number
// of complete and malformed requests parsed from it.
func (w *Worker) handleConn(connQD datapath.QD) {
	for {
		notify := make(chan datapath.Completion, 1)
		w.dp.SubmitPop(connQD, notify, w.bufs.Get)
		c := datapath.Wait(notify)
		if c.Err != nil {
			if !datapath.IsRecoverable(c.Err) {
				w.log.Error().Err(c.Err).Msg("fatal transport error on connection")
			}
			_ = w.dp.Close(connQD)
			return
		}

		data := c.SGA.Seg0
		req, status, err := reqres.Parse(data)

		switch status {
		case reqres.StatusIncomplete:
			w.log.Debug().Msg("dropping incomplete request")
			w.m.RequestsTotal.WithLabelValues("incomplete").Inc()
			w.bufs.Put(data)
			continue
		case reqres.StatusError:
			w.log.Debug().Err(err).Msg("parse error, replying bad request")
			w.m.RequestsTotal.WithLabelValues("bad_request").Inc()
			w.bufs.Put(data)
			if !w.reply(connQD, []byte(reqres.BadRequest)) {
				return
			}
			continue
		}

		if !w.split {
			resp := compute.BuildResponse(w.fileDir, req)
			w.bufs.Put(data)
			w.m.RequestsTotal.WithLabelValues("ok").Inc()
			w.m.ResponseBytes.Observe(float64(len(resp.Body)))
			if !w.reply(connQD, resp.Bytes()) {
				return
			}
			continue
		}

		if !w.forward(connQD, req, data) {
			return
		}
	}
}

// forward selects a compute worker per the routing policy, hands the raw
// request bytes off to its input queue tagged with connQD, and blocks
// until the matching output dispatcher reports the response delivered.
// It reports whether connQD is still usable for another request.
func (w *Worker) forward(connQD datapath.QD, req *reqres.Request, data []byte) bool {
	handles := w.reg.ComputeHandles()
	if len(handles) == 0 {
		w.log.Error().Msg("split mode with no compute workers registered")
		_ = w.dp.Close(connQD)
		return false
	}
	target := handles[w.router.Select(req)%len(handles)]

	done := w.tracker.register(connQD)
	notify := make(chan datapath.Completion, 1)
	sga := datapath.SGA{NumSegs: 1, Seg0: data}.Envelope(connQD)
	w.dp.SubmitPush(target.InputQD, sga, notify)
	if c := datapath.Wait(notify); c.Err != nil {
		w.tracker.cancel(connQD)
		w.log.Error().Err(c.Err).Msg("failed to forward request to compute worker")
		_ = w.dp.Close(connQD)
		return false
	}

	if err := <-done; err != nil {
		if !datapath.IsRecoverable(err) {
			w.log.Debug().Err(err).Msg("failed to write dispatched response")
		}
		_ = w.dp.Close(connQD)
		return false
	}
	return true
}

// reply pushes wire to connQD and reports whether it remains usable for
// another request; a push failure closes it.
func (w *Worker) reply(connQD datapath.QD, wire []byte) bool {
	notify := make(chan datapath.Completion, 1)
	w.dp.SubmitPush(connQD, datapath.SGA{NumSegs: 1, Seg0: wire}, notify)
	c := datapath.Wait(notify)
	if c.Err != nil {
		if !datapath.IsRecoverable(c.Err) {
			w.log.Debug().Err(c.Err).Msg("failed to write response")
		}
		_ = w.dp.Close(connQD)
		return false
	}
	return true
}
