// Package datapath is the concrete, in-process implementation of the
// zero-copy, queue-descriptor-and-completion-token datapath the dispatch
// core is built on. Every operation (accept, pop, push) is submitted
// non-blocking and returns a Token; completion is observed only by reading
// from the channel the caller supplied at submission time — a reactor
// mapped onto goroutines and channel selects rather than a hand-rolled
// event loop.
package datapath

import "sync/atomic"

// QD is an opaque descriptor for a stream socket or an in-memory queue.
// The two kinds are distinguishable only by provenance, never by the value.
type QD int64

// Opcode identifies which operation a Completion resulted from.
type Opcode int

const (
	OpAccept Opcode = iota
	OpPop
	OpPush
)

func (op Opcode) String() string {
	switch op {
	case OpAccept:
		return "accept"
	case OpPop:
		return "pop"
	case OpPush:
		return "push"
	default:
		return "unknown"
	}
}

var nextTokenID uint64

// Token identifies exactly one submitted asynchronous operation. It carries
// no channel of its own — completion always arrives on the channel passed
// to the submitting call — so a Token is safe to store in a plain map key.
type Token struct {
	id uint64
}

func newToken() Token {
	return Token{id: atomic.AddUint64(&nextTokenID, 1)}
}

// SGA is a scatter/gather buffer with an optional envelope segment,
// modeled as a tagged struct field rather than smuggling the client
// descriptor through a segment length field.
type SGA struct {
	NumSegs int // 1 (payload only) or 2 (payload + envelope)
	Seg0    []byte
	// ClientQD is meaningful only when NumSegs == 2.
	ClientQD QD
}

// Envelope attaches segment 1 to sga, carrying origin so the connection
// worker can recover it once the compute stage replies.
func (s SGA) Envelope(origin QD) SGA {
	s.NumSegs = 2
	s.ClientQD = origin
	return s
}

// Completion reports the result of exactly one submitted operation.
type Completion struct {
	Token Token
	QD    QD
	Op    Opcode
	SGA   SGA
	// NewQD is set on a successful accept completion: the descriptor of
	// the freshly accepted connection.
	NewQD QD
	Err   error
}
