package reqres

import (
	"regexp"
	"strings"
)

// maxRegexBodyBytes bounds the generated HTML body, per the response
// builder contract's compile-time bound.
const maxRegexBodyBytes = 8 * 1024

var safeValue = regexp.MustCompile(`[A-Za-z0-9_-]+`)

// BuildRegexResponse extracts the "value" query parameter from a request
// URL and runs a bounded HTML-generation routine against it. A missing
// parameter is reported as 501, matching the extraction-failure contract.
func BuildRegexResponse(req *Request) *Response {
	raw, ok := req.Query("value")
	if !ok || raw == "" {
		return &Response{Status: 501, ContentType: "text/html", Body: []byte("<html><body>missing value parameter</body></html>")}
	}

	matches := safeValue.FindAllString(raw, -1)
	safe := strings.Join(matches, "")
	if safe == "" {
		return &Response{Status: 501, ContentType: "text/html", Body: []byte("<html><body>no valid characters in value parameter</body></html>")}
	}

	var b strings.Builder
	b.WriteString("<html><head><title>regex match</title></head><body><ul>")
	for i := 0; b.Len() < maxRegexBodyBytes-32 && i < 512; i++ {
		b.WriteString("<li>")
		b.WriteString(safe)
		b.WriteString("</li>")
	}
	b.WriteString("</ul></body></html>")

	body := []byte(b.String())
	if len(body) > maxRegexBodyBytes {
		body = body[:maxRegexBodyBytes]
	}
	return &Response{Status: 200, ContentType: "text/html", Body: body}
}
