// Package supervisor parses configuration,
// construct the compute and connection worker pools, pin their threads,
// install signal handling, and join on shutdown.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreloop/qhttpd/internal/affinity"
	"github.com/coreloop/qhttpd/internal/buffer"
	"github.com/coreloop/qhttpd/internal/compute"
	"github.com/coreloop/qhttpd/internal/config"
	"github.com/coreloop/qhttpd/internal/connworker"
	"github.com/coreloop/qhttpd/internal/datapath"
	"github.com/coreloop/qhttpd/internal/metrics"
	"github.com/coreloop/qhttpd/internal/policy"
	"github.com/coreloop/qhttpd/internal/registry"
)

// Supervisor owns the datapath, registry and every worker goroutine for
// one process lifetime.
type Supervisor struct {
	cfg *config.Config
	dp  *datapath.Datapath
	reg *registry.Registry
	log zerolog.Logger
	m   *metrics.Registry
}

// New builds a Supervisor from a parsed Config.
func New(cfg *config.Config, log zerolog.Logger, m *metrics.Registry) *Supervisor {
	return &Supervisor{cfg: cfg, dp: datapath.New(), reg: registry.New(), log: log, m: m}
}

// Run constructs the worker pools per cfg, starts them, and blocks until
// ctx is cancelled or SIGINT/SIGTERM is received, then closes every
// listening descriptor and waits for workers to drain.
func (s *Supervisor) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := affinity.SetAffinity(0); err != nil {
		s.log.Warn().Err(err).Msg("failed to pin supervisor thread to cpu 0")
	}

	routeKind, err := policy.ParseKind(s.cfg.RoutingPolicy)
	if err != nil {
		return err
	}
	if err := policy.Validate(routeKind, s.cfg.ConnectionWorkers, s.cfg.ComputeWorkers); err != nil {
		return err
	}

	// Signals are observed only through this context, installed before the
	// worker pools below are spawned; workers see shutdown only as ctx
	// cancellation, so the supervisor is the sole recipient.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	bufs := buffer.NewPool()
	tracker := connworker.NewPending()

	if s.cfg.Split {
		handles := make([]registry.ComputeHandle, s.cfg.ComputeWorkers)
		for i := 0; i < s.cfg.ComputeWorkers; i++ {
			handles[i] = registry.ComputeHandle{InputQD: s.dp.NewQueue(), OutputQD: s.dp.NewQueue(), ThreadID: s.cfg.ConnectionWorkers + 1 + i}
		}
		s.reg.SetComputeHandles(handles)

		for i, h := range handles {
			cw := compute.New(i, s.dp, h.InputQD, h.OutputQD, s.cfg.FileDir, bufs, s.log, s.m)
			wg.Add(1)
			go func(cw *compute.Worker, cpuID int) {
				defer wg.Done()
				cw.Run(ctx, cpuID)
			}(cw, s.cfg.ConnectionWorkers+1+i)

			wg.Add(1)
			go func(outputQD datapath.QD) {
				defer wg.Done()
				connworker.RunOutputDispatcher(ctx, s.dp, outputQD, tracker, s.log)
			}(h.OutputQD)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.pollQueueDepth(ctx, handles)
		}()
	}

	for i := 0; i < s.cfg.ConnectionWorkers; i++ {
		addr := connAddr(s.cfg.BaseIP, s.cfg.Port, i)
		listenQD, err := connworker.Bind(s.dp, addr)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("supervisor: bind connection worker %d: %w", i, err)
		}
		s.reg.AddListening(listenQD)

		var router *policy.Router
		if s.cfg.Split {
			router = policy.New(routeKind, i, s.reg.NumComputeWorkers())
		}
		cw := connworker.New(i, s.dp, listenQD, s.reg, router, tracker, s.cfg.Split, s.cfg.FileDir, bufs, s.log, s.m)
		wg.Add(1)
		go func(cw *connworker.Worker, cpuID int) {
			defer wg.Done()
			cw.Run(ctx, cpuID)
		}(cw, i+1)
	}

	var metricsShutdown func(context.Context) error
	if s.cfg.MetricsAddr != "" {
		shutdown, err := s.m.Serve(s.cfg.MetricsAddr)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to start metrics endpoint")
		} else {
			metricsShutdown = shutdown
		}
	}

	<-ctx.Done()
	s.log.Info().Msg("shutting down")
	for _, qd := range s.reg.Listening() {
		_ = s.dp.Close(qd)
	}
	for _, h := range s.reg.ComputeHandles() {
		_ = s.dp.Close(h.InputQD)
		_ = s.dp.Close(h.OutputQD)
	}
	if metricsShutdown != nil {
		_ = metricsShutdown(context.Background())
	}
	wg.Wait()
	return nil
}

// pollQueueDepth periodically samples each compute worker's input queue
// depth for the qhttpd_compute_queue_depth gauge, until ctx is cancelled.
func (s *Supervisor) pollQueueDepth(ctx context.Context, handles []registry.ComputeHandle) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, h := range handles {
				if depth, ok := s.dp.QueueDepth(h.InputQD); ok {
					s.m.QueueDepth.WithLabelValues(strconv.Itoa(h.ThreadID)).Set(float64(depth))
				}
			}
		}
	}
}

// connAddr computes the listen address for connection worker index. When
// baseIP is unset every worker shares one INADDR_ANY:port and relies on
// SO_REUSEPORT to spread accepts across them, per the supervisor's setup
// contract. When baseIP is set, worker i listens on baseIP+2*i (the last
// octet of the address advanced by two per worker) on the same port,
// giving each worker its own IP alias instead of a shared reuseport
// listener.
func connAddr(baseIP string, port uint16, workerIndex int) string {
	if baseIP == "" {
		return fmt.Sprintf(":%d", port)
	}
	ip := net.ParseIP(baseIP).To4()
	if ip == nil {
		return fmt.Sprintf("%s:%d", baseIP, port)
	}
	offset := 2 * workerIndex
	advanced := make(net.IP, len(ip))
	copy(advanced, ip)
	advanced[3] += byte(offset)
	return fmt.Sprintf("%s:%d", advanced.String(), port)
}
