// Package policy implements the three split-mode routing policies,
// selecting which compute worker a connection worker forwards a request
// to.
package policy

import (
	"errors"
	"sync/atomic"

	"github.com/coreloop/qhttpd/internal/reqres"
)

// Kind names a routing policy, selected at startup.
type Kind int

const (
	RoundRobin Kind = iota
	ByType
	OneToOne
)

// ParseKind maps a CLI flag value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "round_robin", "":
		return RoundRobin, nil
	case "by_type":
		return ByType, nil
	case "one_to_one":
		return OneToOne, nil
	default:
		return RoundRobin, errors.New("policy: unknown routing policy " + s)
	}
}

// ErrOneToOneUnderProvisioned is returned when ONE_TO_ONE is configured
// with fewer compute workers than connection workers, since each
// connection worker maps to exactly one compute partner.
var ErrOneToOneUnderProvisioned = errors.New("policy: one_to_one requires num_compute_workers >= num_connection_workers")

// Validate checks a policy against the worker pool sizes the supervisor is
// about to construct, before any traffic is accepted.
func Validate(kind Kind, numConnWorkers, numComputeWorkers int) error {
	if kind == OneToOne && numComputeWorkers < numConnWorkers {
		return ErrOneToOneUnderProvisioned
	}
	return nil
}

// Router selects a compute worker index for each request a connection
// worker forwards. One Router is owned per connection worker, but that
// worker handles every accepted connection on its own goroutine, so
// received is mutated concurrently and must be updated atomically.
type Router struct {
	kind              Kind
	connWorkerID      int
	numComputeWorkers int
	received          uint64
}

// New builds a Router for connection worker connWorkerID.
func New(kind Kind, connWorkerID, numComputeWorkers int) *Router {
	return &Router{kind: kind, connWorkerID: connWorkerID, numComputeWorkers: numComputeWorkers}
}

// Select returns the compute worker index for req and, for ROUND_ROBIN,
// advances the received-request counter.
func (r *Router) Select(req *reqres.Request) int {
	n := r.numComputeWorkers
	if n <= 0 {
		return 0
	}
	switch r.kind {
	case ByType:
		return int(reqres.Classify(req.URL)) % n
	case OneToOne:
		return r.connWorkerID % n
	default: // RoundRobin
		received := atomic.AddUint64(&r.received, 1)
		return int(received % uint64(n))
	}
}
