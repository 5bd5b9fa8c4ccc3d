// Command qhttpd is the entry point: parse flags, build the logger and
// metrics registry, then hand off to the supervisor.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/coreloop/qhttpd/internal/config"
	"github.com/coreloop/qhttpd/internal/logging"
	"github.com/coreloop/qhttpd/internal/metrics"
	"github.com/coreloop/qhttpd/internal/supervisor"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "qhttpd:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	m := metrics.New()
	log.Info().
		Int("connection_workers", cfg.ConnectionWorkers).
		Int("compute_workers", cfg.ComputeWorkers).
		Bool("split", cfg.Split).
		Uint16("port", cfg.Port).
		Str("routing_policy", cfg.RoutingPolicy).
		Msg("starting")

	sup := supervisor.New(cfg, log, m)
	return sup.Run(context.Background())
}
