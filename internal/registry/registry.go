// Package registry holds the set of listening descriptors and the set of
// compute-worker handles as a supervisor-owned structure passed by
// reference to each worker, not a package-level global — the signal
// handler and connection workers each hold a *Registry rather than
// reaching into process globals.
package registry

import (
	"sync"

	"github.com/coreloop/qhttpd/internal/datapath"
)

// ComputeHandle records one compute worker's queue pair, per the data
// model's {input_queue, output_queue, thread_id} record. It is
// constructed once before any connection worker starts and is read-only
// thereafter, so it needs no synchronization once published.
type ComputeHandle struct {
	InputQD  datapath.QD
	OutputQD datapath.QD
	ThreadID int
}

// Registry is the supervisor-owned structure passed by reference to every
// worker.
type Registry struct {
	mu        sync.Mutex
	listening []datapath.QD

	// compute is immutable after SetComputeHandles is called by the
	// supervisor, before any connection worker is spawned.
	compute []ComputeHandle
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{}
}

// AddListening records a listening descriptor. The supervisor calls it once
// per connection worker, right after binding that worker's socket.
func (r *Registry) AddListening(qd datapath.QD) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listening = append(r.listening, qd)
}

// Listening returns a snapshot of every registered listening descriptor,
// for the signal handler to close on termination.
func (r *Registry) Listening() []datapath.QD {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]datapath.QD, len(r.listening))
	copy(out, r.listening)
	return out
}

// SetComputeHandles publishes the compute-worker handle table. The
// supervisor calls this exactly once, before spawning any connection
// worker, so no synchronization is needed on reads.
func (r *Registry) SetComputeHandles(handles []ComputeHandle) {
	r.compute = handles
}

// ComputeHandles returns the read-only compute-worker handle table.
func (r *Registry) ComputeHandles() []ComputeHandle {
	return r.compute
}

// NumComputeWorkers reports the size of the published compute-worker
// handle table, which the supervisor reads when constructing each
// connection worker's Router.
func (r *Registry) NumComputeWorkers() int {
	return len(r.compute)
}
