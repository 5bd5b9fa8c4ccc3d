package datapath

import (
	"context"
	"net"
	"sync"
)

// streamSocket is either a not-yet-bound / listening socket, or an accepted
// (or otherwise connected) stream, tracked under the same QD space as
// in-memory queues. The two kinds are distinguishable only by which fields
// are populated, never by the QD value itself.
type streamSocket struct {
	qd QD

	mu   sync.Mutex
	ln   net.Listener
	conn net.Conn
}

func newStreamSocket(qd QD) *streamSocket {
	return &streamSocket{qd: qd}
}

// bind opens a listener with SO_REUSEPORT set (on platforms that support
// it), so multiple connection workers can share one INADDR_ANY:port
// configuration and let the kernel spread accepts across them.
func (s *streamSocket) bind(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lc := net.ListenConfig{Control: controlReusePort}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// listen is a no-op beyond bind: net.Listen already puts the socket into
// the listening state with the platform's default backlog. It is kept as
// its own call so callers submit the same create/bind/listen/accept
// operation sequence a real async socket API would require.
func (s *streamSocket) listen(_ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ErrInvalidState
	}
	return nil
}

func (s *streamSocket) submitAccept(dp *Datapath, notify chan<- Completion) Token {
	tok := newToken()
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		deliver(notify, Completion{Token: tok, QD: s.qd, Op: OpAccept, Err: ErrInvalidState})
		return tok
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			deliver(notify, Completion{Token: tok, QD: s.qd, Op: OpAccept, Err: classifyNetErr(err)})
			return
		}
		newQD := dp.adoptConn(conn)
		deliver(notify, Completion{Token: tok, QD: s.qd, Op: OpAccept, NewQD: newQD})
	}()
	return tok
}

func (s *streamSocket) submitPop(notify chan<- Completion, get func(int) []byte) Token {
	tok := newToken()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		deliver(notify, Completion{Token: tok, QD: s.qd, Op: OpPop, Err: ErrWrongKind})
		return tok
	}
	go func() {
		buf := get(64 * 1024)
		buf = buf[:cap(buf)]
		n, err := conn.Read(buf)
		if err != nil && n == 0 {
			deliver(notify, Completion{Token: tok, QD: s.qd, Op: OpPop, Err: classifyNetErr(err)})
			return
		}
		deliver(notify, Completion{Token: tok, QD: s.qd, Op: OpPop, SGA: SGA{NumSegs: 1, Seg0: buf[:n]}})
	}()
	return tok
}

func (s *streamSocket) submitPush(sga SGA, notify chan<- Completion) Token {
	tok := newToken()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		deliver(notify, Completion{Token: tok, QD: s.qd, Op: OpPush, Err: ErrWrongKind})
		return tok
	}
	go func() {
		_, err := conn.Write(sga.Seg0)
		deliver(notify, Completion{Token: tok, QD: s.qd, Op: OpPush, Err: classifyNetErr(err)})
	}()
	return tok
}

func (s *streamSocket) localAddr() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String(), true
	}
	if s.conn != nil {
		return s.conn.LocalAddr().String(), true
	}
	return "", false
}

func (s *streamSocket) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.conn != nil {
		err = s.conn.Close()
	}
	if s.ln != nil {
		if lerr := s.ln.Close(); lerr != nil && err == nil {
			err = lerr
		}
	}
	return err
}
