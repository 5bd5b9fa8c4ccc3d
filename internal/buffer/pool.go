// Package buffer provides the reusable backing-allocation source for
// scatter/gather payloads that move across the datapath. Request buffers
// read off client sockets are checked out of a Pool and returned exactly
// once, after the request has been parsed and handled — this is the
// "single owning backing allocation" invariant from the data model.
// Response bodies are allocated by the response builders and are not drawn
// from a Pool.
package buffer

import "sync"

// Pool hands out reusable byte slices sized to at least the requested
// capacity. Slices returned by Get must be Put back exactly once, after
// the last operation that reads or writes them has completed.
type Pool struct {
	classes []int
	pools   []*sync.Pool
}

// defaultClasses mirrors typical HTTP/1.1 request/response sizes: a small
// class for headers-only exchanges, a medium class for the 8 KiB regex
// response bound, and a large class for whole small files.
var defaultClasses = []int{512, 8 * 1024, 64 * 1024}

// NewPool builds a size-classed buffer pool. Passing no classes falls back
// to defaultClasses.
func NewPool(classes ...int) *Pool {
	if len(classes) == 0 {
		classes = defaultClasses
	}
	p := &Pool{classes: classes, pools: make([]*sync.Pool, len(classes))}
	for i, size := range classes {
		size := size
		p.pools[i] = &sync.Pool{New: func() any { return make([]byte, 0, size) }}
	}
	return p
}

// Get returns a zero-length slice with capacity at least n.
func (p *Pool) Get(n int) []byte {
	for i, size := range p.classes {
		if n <= size {
			buf := p.pools[i].Get().([]byte)
			return buf[:0]
		}
	}
	return make([]byte, 0, n)
}

// Put returns buf to the size class whose size equals its capacity, so a
// later Get from that class still receives the capacity it asked for. A
// buffer whose capacity matches no class (one that grew via append, or one
// Get allocated past the largest class) is dropped for the GC to reclaim
// rather than pooled.
func (p *Pool) Put(buf []byte) {
	c := cap(buf)
	for i, size := range p.classes {
		if c == size {
			p.pools[i].Put(buf[:0])
			return
		}
	}
}
