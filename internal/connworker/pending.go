package connworker

import (
	"sync"

	"github.com/coreloop/qhttpd/internal/datapath"
)

// Pending tracks connections forwarded to a compute worker and awaiting
// delivery of their response, keyed by the client's own descriptor. The
// connection worker that forwarded a request blocks on the channel it
// registers here; whichever output dispatcher eventually delivers that
// response resolves it, letting the connection worker re-arm the same
// descriptor for its next request without routing the response back
// through the connection worker itself. One instance is shared by every
// connection worker and every output dispatcher in the process.
type Pending struct {
	mu sync.Mutex
	m  map[datapath.QD]chan error
}

// NewPending builds an empty Pending table.
func NewPending() *Pending {
	return &Pending{m: make(map[datapath.QD]chan error)}
}

func (p *Pending) register(qd datapath.QD) chan error {
	ch := make(chan error, 1)
	p.mu.Lock()
	p.m[qd] = ch
	p.mu.Unlock()
	return ch
}

// cancel removes a registration nobody will ever resolve, e.g. because the
// forwarding push itself failed.
func (p *Pending) cancel(qd datapath.QD) {
	p.mu.Lock()
	delete(p.m, qd)
	p.mu.Unlock()
}

func (p *Pending) resolve(qd datapath.QD, err error) {
	p.mu.Lock()
	ch, ok := p.m[qd]
	if ok {
		delete(p.m, qd)
	}
	p.mu.Unlock()
	if ok {
		ch <- err
	}
}
