package supervisor

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreloop/qhttpd/internal/config"
	"github.com/coreloop/qhttpd/internal/metrics"
)

func TestConnAddrSharedPortWhenNoBaseIP(t *testing.T) {
	if got := connAddr("", 8080, 3); got != ":8080" {
		t.Fatalf("expected shared :8080, got %q", got)
	}
}

func TestConnAddrAdvancesLastOctet(t *testing.T) {
	if got := connAddr("10.0.0.10", 8080, 2); got != "10.0.0.14:8080" {
		t.Fatalf("expected 10.0.0.14:8080, got %q", got)
	}
}

func TestSupervisorJoinedModeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("supervised"), 0o644); err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	ln.Close()

	cfg := &config.Config{
		ConnectionWorkers: 1,
		ComputeWorkers:    1,
		Port:              port,
		BaseIP:            "127.0.0.1",
		FileDir:           dir,
		RoutingPolicy:     "round_robin",
	}
	sup := New(cfg, zerolog.Nop(), metrics.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	addr := "127.0.0.1:" + strconv.Itoa(int(port))
	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET /ok.txt HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); !containsAll(got, "200 OK", "supervised") {
		t.Fatalf("unexpected response: %s", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !contains(s, sub) {
			return false
		}
	}
	return true
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
