package connworker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/coreloop/qhttpd/internal/datapath"
)

// RunOutputDispatcher drains a compute worker's output queue and delivers
// each response directly to the client connection named by its envelope,
// then resolves that connection's pending entry so the connection worker
// that forwarded it can re-arm the descriptor for another request. One
// dispatcher runs per compute worker, started by the supervisor. Delivery
// never routes back through whichever connection worker originally
// forwarded the request: queue descriptors are unique in a single
// process-wide namespace, so any holder of dp can push straight to a
// client socket by its QD.
func RunOutputDispatcher(ctx context.Context, dp *datapath.Datapath, outputQD datapath.QD, tracker *Pending, log zerolog.Logger) {
	notify := make(chan datapath.Completion, 1)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		dp.SubmitPop(outputQD, notify, nil)
		c := datapath.Wait(notify)
		if c.Err != nil {
			if c.Err == datapath.ErrClosed {
				return
			}
			log.Error().Err(c.Err).Msg("fatal: compute output queue pop failed")
			return
		}

		clientQD := c.SGA.ClientQD
		pushNotify := make(chan datapath.Completion, 1)
		dp.SubmitPush(clientQD, datapath.SGA{NumSegs: 1, Seg0: c.SGA.Seg0}, pushNotify)
		pc := datapath.Wait(pushNotify)
		if pc.Err != nil && !datapath.IsRecoverable(pc.Err) {
			log.Debug().Err(pc.Err).Msg("failed writing dispatched response to client")
		}
		tracker.resolve(clientQD, pc.Err)
	}
}
