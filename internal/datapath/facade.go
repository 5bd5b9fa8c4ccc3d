package datapath

import (
	"net"
	"sync"
	"sync/atomic"
)

// Datapath is the process-wide table of live descriptors: create stream
// socket; bind/listen/accept; create in-memory queue; submit
// pop/push/accept yielding a token; wait; wait_any; close.
type Datapath struct {
	nextQD atomic.Int64

	mu      sync.RWMutex
	sockets map[QD]*streamSocket
	queues  map[QD]*memQueue
}

// New builds an empty Datapath.
func New() *Datapath {
	return &Datapath{
		sockets: make(map[QD]*streamSocket),
		queues:  make(map[QD]*memQueue),
	}
}

func (dp *Datapath) allocQD() QD {
	return QD(dp.nextQD.Add(1))
}

// NewSocket creates an unbound stream socket descriptor.
func (dp *Datapath) NewSocket() QD {
	qd := dp.allocQD()
	dp.mu.Lock()
	dp.sockets[qd] = newStreamSocket(qd)
	dp.mu.Unlock()
	return qd
}

// adoptConn registers an already-accepted net.Conn under a fresh QD.
func (dp *Datapath) adoptConn(conn net.Conn) QD {
	qd := dp.allocQD()
	s := newStreamSocket(qd)
	s.conn = conn
	dp.mu.Lock()
	dp.sockets[qd] = s
	dp.mu.Unlock()
	return qd
}

// NewQueue creates an in-memory point-to-point queue descriptor.
func (dp *Datapath) NewQueue() QD {
	qd := dp.allocQD()
	dp.mu.Lock()
	dp.queues[qd] = newMemQueue(qd)
	dp.mu.Unlock()
	return qd
}

func (dp *Datapath) socket(qd QD) (*streamSocket, bool) {
	dp.mu.RLock()
	s, ok := dp.sockets[qd]
	dp.mu.RUnlock()
	return s, ok
}

func (dp *Datapath) queue(qd QD) (*memQueue, bool) {
	dp.mu.RLock()
	q, ok := dp.queues[qd]
	dp.mu.RUnlock()
	return q, ok
}

// Bind binds a socket descriptor to a local address.
func (dp *Datapath) Bind(qd QD, addr string) error {
	s, ok := dp.socket(qd)
	if !ok {
		return ErrUnknownQD
	}
	return s.bind(addr)
}

// Listen puts a bound socket into the listening state.
func (dp *Datapath) Listen(qd QD, backlog int) error {
	s, ok := dp.socket(qd)
	if !ok {
		return ErrUnknownQD
	}
	return s.listen(backlog)
}

// SubmitAccept submits a non-blocking accept on a listening socket. The
// completion's NewQD is the freshly accepted connection's descriptor.
func (dp *Datapath) SubmitAccept(qd QD, notify chan<- Completion) Token {
	s, ok := dp.socket(qd)
	if !ok {
		tok := newToken()
		deliver(notify, Completion{Token: tok, QD: qd, Op: OpAccept, Err: ErrUnknownQD})
		return tok
	}
	return s.submitAccept(dp, notify)
}

// bufGetter is supplied by callers that own a buffer pool, so a socket pop
// draws its backing allocation from the caller's pool rather than
// allocating fresh memory per read.
type bufGetter = func(size int) []byte

// SubmitPop submits a non-blocking pop from either a connection socket or
// an in-memory queue. get supplies the backing buffer for socket reads; it
// is ignored for queue pops, since those already carry an owned SGA.
func (dp *Datapath) SubmitPop(qd QD, notify chan<- Completion, get bufGetter) Token {
	if q, ok := dp.queue(qd); ok {
		return q.submitPop(notify)
	}
	if s, ok := dp.socket(qd); ok {
		if get == nil {
			get = func(n int) []byte { return make([]byte, 0, n) }
		}
		return s.submitPop(notify, get)
	}
	tok := newToken()
	deliver(notify, Completion{Token: tok, QD: qd, Op: OpPop, Err: ErrUnknownQD})
	return tok
}

// SubmitPush submits a non-blocking push of sga to either a connection
// socket (writing segment 0 to the wire) or an in-memory queue (handing sga
// off, envelope included, to the next pop).
func (dp *Datapath) SubmitPush(qd QD, sga SGA, notify chan<- Completion) Token {
	if q, ok := dp.queue(qd); ok {
		return q.submitPush(sga, notify)
	}
	if s, ok := dp.socket(qd); ok {
		return s.submitPush(sga, notify)
	}
	tok := newToken()
	deliver(notify, Completion{Token: tok, QD: qd, Op: OpPush, Err: ErrUnknownQD})
	return tok
}

// QueueDepth returns the number of sga values currently buffered in a
// queue, waiting for a pop. It is a point-in-time snapshot for metrics
// only; nothing in the dispatch core depends on its value.
func (dp *Datapath) QueueDepth(qd QD) (int, bool) {
	q, ok := dp.queue(qd)
	if !ok {
		return 0, false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Length(), true
}

// SocketAddr returns the local address a bound or listening socket
// descriptor is on, mainly useful for tests that bind to an ephemeral
// port and need to dial back into it.
func (dp *Datapath) SocketAddr(qd QD) (string, bool) {
	s, ok := dp.socket(qd)
	if !ok {
		return "", false
	}
	return s.localAddr()
}

// Close releases a descriptor, whichever kind it is.
func (dp *Datapath) Close(qd QD) error {
	dp.mu.Lock()
	s, isSocket := dp.sockets[qd]
	delete(dp.sockets, qd)
	q, isQueue := dp.queues[qd]
	delete(dp.queues, qd)
	dp.mu.Unlock()
	switch {
	case isSocket:
		return s.close()
	case isQueue:
		q.close()
		return nil
	default:
		return ErrUnknownQD
	}
}

// Wait blocks until the next completion arrives on ch. Every submission a
// worker makes against ch shares that one channel, so waiting for any
// outstanding operation and waiting for a single specific one are both
// just a receive; the returned Completion's Token tells the caller which
// submission finished.
func Wait(ch <-chan Completion) Completion {
	return <-ch
}
