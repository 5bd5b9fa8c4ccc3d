package reqres

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestBuildFileResponseFound(t *testing.T) {
	dir := t.TempDir()
	body := []byte("hello world")
	if err := os.WriteFile(filepath.Join(dir, "index.html"), body, 0o644); err != nil {
		t.Fatal(err)
	}

	resp := BuildFileResponse(dir, "/index.html")
	if resp.Status != 200 {
		t.Fatalf("status=%d", resp.Status)
	}
	if string(resp.Body) != string(body) {
		t.Fatalf("body mismatch: %q", resp.Body)
	}

	wire := resp.Bytes()
	if !strings.Contains(string(wire), "Content-Length: "+strconv.Itoa(len(body))) {
		t.Fatalf("missing content-length header: %s", wire)
	}
}

func TestBuildFileResponseMissing(t *testing.T) {
	dir := t.TempDir()
	resp := BuildFileResponse(dir, "/missing")
	if resp.Status != 404 || len(resp.Body) != 0 {
		t.Fatalf("expected empty 404, got status=%d body=%q", resp.Status, resp.Body)
	}
}

func TestBuildFileResponseRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	resp := BuildFileResponse(dir, "/../../etc/passwd")
	if resp.Status != 404 {
		t.Fatalf("expected traversal to 404, got %d", resp.Status)
	}
}

func TestBuildRegexResponseMissingParam(t *testing.T) {
	resp := BuildRegexResponse(&Request{URL: "/regex"})
	if resp.Status != 501 {
		t.Fatalf("expected 501, got %d", resp.Status)
	}
}

func TestBuildRegexResponseSuccess(t *testing.T) {
	resp := BuildRegexResponse(&Request{URL: "/regex?value=abc"})
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	if len(resp.Body) > maxRegexBodyBytes {
		t.Fatalf("body exceeds bound: %d", len(resp.Body))
	}
	if !strings.Contains(string(resp.Body), "abc") {
		t.Fatalf("body missing echoed value: %s", resp.Body)
	}
}
