// Package compute implements the compute worker: a single-threaded
// request/response loop over one dedicated input/output queue pair.
package compute

import (
	"context"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/coreloop/qhttpd/internal/affinity"
	"github.com/coreloop/qhttpd/internal/buffer"
	"github.com/coreloop/qhttpd/internal/datapath"
	"github.com/coreloop/qhttpd/internal/metrics"
	"github.com/coreloop/qhttpd/internal/reqres"
)

// Worker consumes parsed-and-ready request buffers from Input and pushes
// responses to Output. The envelope on each sga is never inspected for
// routing here, only forwarded, per the data model's point-to-point
// invariant.
type Worker struct {
	ID      int
	dp      *datapath.Datapath
	Input   datapath.QD
	Output  datapath.QD
	fileDir string
	bufs    *buffer.Pool
	log     zerolog.Logger
	m       *metrics.Registry
}

// New builds a compute worker bound to its dedicated queue pair.
func New(id int, dp *datapath.Datapath, input, output datapath.QD, fileDir string, bufs *buffer.Pool, log zerolog.Logger, m *metrics.Registry) *Worker {
	return &Worker{ID: id, dp: dp, Input: input, Output: output, fileDir: fileDir, bufs: bufs, log: log.With().Int("compute_worker", id).Logger(), m: m}
}

// Run pins the calling goroutine's OS thread to cpuID and drives the loop
// until ctx is cancelled, the input queue is closed, or a pop or push on
// its queues fails.
func (w *Worker) Run(ctx context.Context, cpuID int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if cpuID >= 0 {
		if err := affinity.SetAffinity(cpuID); err != nil {
			w.log.Warn().Err(err).Int("cpu", cpuID).Msg("failed to pin compute worker thread")
		}
	}

	notify := make(chan datapath.Completion, 1)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.dp.SubmitPop(w.Input, notify, w.bufs.Get)
		c := datapath.Wait(notify)
		if c.Err != nil {
			if c.Err == datapath.ErrClosed {
				return
			}
			w.log.Error().Err(c.Err).Msg("fatal: input queue pop failed")
			return
		}

		if !w.handle(notify, c.SGA) {
			return
		}
	}
}

// handle answers one request and reports whether the worker may continue.
func (w *Worker) handle(notify chan datapath.Completion, in datapath.SGA) bool {
	origin := in.ClientQD
	req, status, err := reqres.Parse(in.Seg0)
	w.bufs.Put(in.Seg0)

	switch status {
	case reqres.StatusIncomplete:
		w.log.Debug().Msg("dropping incomplete request forwarded from connection worker")
		w.m.RequestsTotal.WithLabelValues("incomplete").Inc()
		return true
	case reqres.StatusError:
		w.log.Debug().Err(err).Msg("parse error, replying bad-request")
		w.m.RequestsTotal.WithLabelValues("bad_request").Inc()
		return w.reply(notify, origin, []byte(reqres.BadRequest))
	}

	resp := BuildResponse(w.fileDir, req)
	w.m.RequestsTotal.WithLabelValues("ok").Inc()
	w.m.ResponseBytes.Observe(float64(len(resp.Body)))
	return w.reply(notify, origin, resp.Bytes())
}

// BuildResponse dispatches req to the file or regex builder per its
// classification. It is shared by the compute worker's split-mode loop and
// the connection worker's joined-mode loop, so both modes produce
// identical responses for the same request.
func BuildResponse(fileDir string, req *reqres.Request) *reqres.Response {
	switch reqres.Classify(req.URL) {
	case reqres.KindRegex:
		return reqres.BuildRegexResponse(req)
	default:
		return reqres.BuildFileResponse(fileDir, req.Path())
	}
}

// reply pushes wire to Output as a two-segment sga carrying the envelope,
// and waits for the push to complete before returning, matching "push to
// the output queue, wait, continue". It reports whether the push
// succeeded; a failed push stops the worker.
func (w *Worker) reply(notify chan datapath.Completion, origin datapath.QD, wire []byte) bool {
	sga := datapath.SGA{NumSegs: 1, Seg0: wire}.Envelope(origin)
	w.dp.SubmitPush(w.Output, sga, notify)
	if c := datapath.Wait(notify); c.Err != nil {
		w.log.Error().Err(c.Err).Msg("fatal: output queue push failed")
		return false
	}
	return true
}
