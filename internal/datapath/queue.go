package datapath

import (
	"sync"

	"github.com/eapache/queue"
)

// waiter is a pop submitted while the queue was empty; it is fulfilled, in
// submission order, by the next push.
type waiter struct {
	token  Token
	notify chan<- Completion
}

// memQueue is the in-memory, point-to-point queue backing a QD created by
// Datapath.NewQueue. Pushes become visible to pops in push order; pending
// pops are satisfied FIFO by push order too, matching the per-queue
// ordering guarantee in the concurrency model.
type memQueue struct {
	qd QD

	mu      sync.Mutex
	pending *queue.Queue // of SGA, buffered until a pop claims them
	waiters *queue.Queue // of *waiter, pending pops with nothing to claim yet
	closed  bool
}

func newMemQueue(qd QD) *memQueue {
	return &memQueue{
		qd:      qd,
		pending: queue.New(),
		waiters: queue.New(),
	}
}

func (q *memQueue) submitPop(notify chan<- Completion) Token {
	tok := newToken()
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		deliver(notify, Completion{Token: tok, QD: q.qd, Op: OpPop, Err: ErrClosed})
		return tok
	}
	if q.pending.Length() > 0 {
		sga := q.pending.Remove().(SGA)
		q.mu.Unlock()
		deliver(notify, Completion{Token: tok, QD: q.qd, Op: OpPop, SGA: sga})
		return tok
	}
	q.waiters.Add(&waiter{token: tok, notify: notify})
	q.mu.Unlock()
	return tok
}

func (q *memQueue) submitPush(sga SGA, notify chan<- Completion) Token {
	tok := newToken()
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		deliver(notify, Completion{Token: tok, QD: q.qd, Op: OpPush, Err: ErrClosed})
		return tok
	}
	if q.waiters.Length() > 0 {
		w := q.waiters.Remove().(*waiter)
		q.mu.Unlock()
		// Ownership of sga transfers to the waiting popper; the pusher's
		// own push completion carries no payload back.
		deliver(w.notify, Completion{Token: w.token, QD: q.qd, Op: OpPop, SGA: sga})
		deliver(notify, Completion{Token: tok, QD: q.qd, Op: OpPush})
		return tok
	}
	q.pending.Add(sga)
	q.mu.Unlock()
	deliver(notify, Completion{Token: tok, QD: q.qd, Op: OpPush})
	return tok
}

func (q *memQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for q.waiters.Length() > 0 {
		w := q.waiters.Remove().(*waiter)
		deliver(w.notify, Completion{Token: w.token, QD: q.qd, Op: OpPop, Err: ErrClosed})
	}
}

// deliver hands a completion to its owner's channel without ever blocking
// the submitter. When the channel has room the completion is sent
// directly, so completions delivered to a channel with spare capacity are
// received in the order they were delivered. Only when the channel is full
// is the send handed to a fresh goroutine; completions parked that way are
// not ordered relative to one another or to later completions.
func deliver(notify chan<- Completion, c Completion) {
	select {
	case notify <- c:
	default:
		go func() { notify <- c }()
	}
}
