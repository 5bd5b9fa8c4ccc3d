package datapath

import (
	"net"
	"testing"
	"time"
)

func TestAcceptPopPushRoundTrip(t *testing.T) {
	dp := New()
	listenQD := dp.NewSocket()
	if err := dp.Bind(listenQD, "127.0.0.1:0"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := dp.Listen(listenQD, 128); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	s, _ := dp.socket(listenQD)
	addr := s.ln.Addr().String()

	acceptCh := make(chan Completion, 1)
	dp.SubmitAccept(listenQD, acceptCh)

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			t.Errorf("dial: %v", err)
			return
		}
		defer conn.Close()
		if _, err := conn.Write([]byte("GET / HTTP/1.1\r\n\r\n")); err != nil {
			t.Errorf("write: %v", err)
		}
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		if string(buf[:n]) != "pong" {
			t.Errorf("expected pong, got %q", buf[:n])
		}
	}()

	acceptCompletion := Wait(acceptCh)
	if acceptCompletion.Err != nil {
		t.Fatalf("accept: %v", acceptCompletion.Err)
	}
	connQD := acceptCompletion.NewQD

	popCh := make(chan Completion, 1)
	dp.SubmitPop(connQD, popCh, nil)
	popCompletion := Wait(popCh)
	if popCompletion.Err != nil {
		t.Fatalf("pop: %v", popCompletion.Err)
	}
	if popCompletion.SGA.NumSegs != 1 || len(popCompletion.SGA.Seg0) == 0 {
		t.Fatalf("unexpected pop sga: %+v", popCompletion.SGA)
	}

	pushCh := make(chan Completion, 1)
	dp.SubmitPush(connQD, SGA{NumSegs: 1, Seg0: []byte("pong")}, pushCh)
	if push := Wait(pushCh); push.Err != nil {
		t.Fatalf("push: %v", push.Err)
	}

	<-clientDone
	_ = dp.Close(connQD)
	_ = dp.Close(listenQD)
}
