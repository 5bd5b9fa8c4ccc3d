// Package config parses the daemon's CLI flags and holds the resulting
// settings.
package config

import (
	"errors"
	"flag"
	"fmt"
)

// Config is the fully parsed, validated startup configuration.
type Config struct {
	ConnectionWorkers int    // --tcp-workers, -t
	ComputeWorkers    int    // --http-workers, -w
	Split             bool   // whether a compute pool is spawned at all
	Port              uint16 // --port
	BaseIP            string // --ip, optional
	FileDir           string // --file-dir
	RoutingPolicy     string // --routing-policy

	LogLevel    string // --log-level
	LogFormat   string // --log-format
	MetricsAddr string // --metrics-addr, empty disables the endpoint
}

// Parse parses args (normally os.Args[1:]) into a Config, applying
// defaults for anything not set.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("qhttpd", flag.ContinueOnError)

	cfg := &Config{}
	var httpWorkers, tcpWorkers uint
	fs.UintVar(&httpWorkers, "http-workers", 1, "compute worker count")
	fs.UintVar(&httpWorkers, "w", 1, "compute worker count (shorthand)")
	fs.UintVar(&tcpWorkers, "tcp-workers", 1, "connection worker count")
	fs.UintVar(&tcpWorkers, "t", 1, "connection worker count (shorthand)")

	var port uint
	fs.UintVar(&port, "port", 8080, "listen port")
	fs.StringVar(&cfg.BaseIP, "ip", "", "optional base listen address; empty means INADDR_ANY shared across workers")
	fs.StringVar(&cfg.FileDir, "file-dir", ".", "document root for the file response builder")
	fs.StringVar(&cfg.RoutingPolicy, "routing-policy", "round_robin", "split-mode routing policy: round_robin, by_type, one_to_one")
	fs.BoolVar(&cfg.Split, "split", false, "run a separate compute worker pool instead of computing inline")

	fs.StringVar(&cfg.LogLevel, "log-level", "info", "zerolog level: trace, debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", "console", "log encoding: console or json")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "loopback address to serve /metrics on; empty disables it")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if port == 0 || port > 65535 {
		return nil, fmt.Errorf("config: port out of range: %d", port)
	}
	cfg.Port = uint16(port)

	if httpWorkers == 0 || tcpWorkers == 0 {
		return nil, errors.New("config: worker counts must be at least 1")
	}
	if httpWorkers > 65535 || tcpWorkers > 65535 {
		return nil, errors.New("config: worker counts must fit in uint16")
	}
	cfg.ComputeWorkers = int(httpWorkers)
	cfg.ConnectionWorkers = int(tcpWorkers)

	return cfg, nil
}
