package reqres

import (
	"fmt"
	"strconv"
)

// Response is an owned, ready-to-write HTTP/1.1 response. Callers get one
// back from a builder; its Body is allocated by the builder, not drawn from
// the buffer pool, and is left to the garbage collector once the push that
// consumes it has completed.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

var reasonPhrase = map[int]string{
	200: "OK",
	404: "Not Found",
	400: "Bad Request",
	501: "Not Implemented",
}

// Bytes serializes the response into a single owned buffer: status line,
// Content-Type, Content-Length, then body. Every response builder emits a
// well-formed status line and both headers, per the response builder
// contract.
func (r *Response) Bytes() []byte {
	reason := reasonPhrase[r.Status]
	if reason == "" {
		reason = "Unknown"
	}
	head := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Type: %s\r\nContent-Length: %s\r\nConnection: close\r\n\r\n",
		r.Status, reason, r.ContentType, strconv.Itoa(len(r.Body)))
	out := make([]byte, 0, len(head)+len(r.Body))
	out = append(out, head...)
	out = append(out, r.Body...)
	return out
}

// BadRequest is the fixed literal HTTP header string sent for parse errors.
// It carries no body, matching the "bad-request response" contract exactly.
const BadRequest = "HTTP/1.1 400 Bad Request\r\nContent-Type: text/html\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"
