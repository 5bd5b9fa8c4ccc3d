package reqres

import "testing"

func TestParseComplete(t *testing.T) {
	req, status, err := Parse([]byte("GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n"))
	if err != nil || status != StatusComplete {
		t.Fatalf("status=%v err=%v", status, err)
	}
	if req.Method != "GET" || req.URL != "/index.html" || req.Headers["Host"] != "x" {
		t.Fatalf("unexpected parse result: %+v", req)
	}
}

func TestParseIncompleteHeaders(t *testing.T) {
	_, status, err := Parse([]byte("GET /index.html HTTP/1.1\r\nHost: x\r\n"))
	if err != nil || status != StatusIncomplete {
		t.Fatalf("status=%v err=%v", status, err)
	}
}

func TestParseHeaderlessRequestIsComplete(t *testing.T) {
	req, status, err := Parse([]byte("GET /missing HTTP/1.1\r\n\r\n"))
	if err != nil || status != StatusComplete {
		t.Fatalf("status=%v err=%v", status, err)
	}
	if req.Method != "GET" || req.URL != "/missing" || len(req.Headers) != 0 {
		t.Fatalf("unexpected parse result: %+v", req)
	}
}

func TestParseHeaderlessRequestWithQueryIsComplete(t *testing.T) {
	req, status, err := Parse([]byte("GET /regex?value=abc HTTP/1.1\r\n\r\n"))
	if err != nil || status != StatusComplete {
		t.Fatalf("status=%v err=%v", status, err)
	}
	if v, ok := req.Query("value"); !ok || v != "abc" {
		t.Fatalf("got %q %v", v, ok)
	}
}

func TestParseHeaderlessRequestLFOnlyIsComplete(t *testing.T) {
	req, status, err := Parse([]byte("GET /missing HTTP/1.1\n\n"))
	if err != nil || status != StatusComplete {
		t.Fatalf("status=%v err=%v", status, err)
	}
	if req.URL != "/missing" || len(req.Headers) != 0 {
		t.Fatalf("unexpected parse result: %+v", req)
	}
}

func TestParseMalformedIsError(t *testing.T) {
	_, status, err := Parse([]byte("NOT_HTTP garbage"))
	if status != StatusError || err == nil {
		t.Fatalf("status=%v err=%v", status, err)
	}
}

func TestQueryExtraction(t *testing.T) {
	req := &Request{URL: "/regex?value=abc&other=1"}
	v, ok := req.Query("value")
	if !ok || v != "abc" {
		t.Fatalf("got %q %v", v, ok)
	}
	if req.Path() != "/regex" {
		t.Fatalf("got path %q", req.Path())
	}
}

func TestClassify(t *testing.T) {
	if Classify("/index.html") != KindFile {
		t.Fatal("expected KindFile")
	}
	if Classify("/regex?value=abc") != KindRegex {
		t.Fatal("expected KindRegex")
	}
}
