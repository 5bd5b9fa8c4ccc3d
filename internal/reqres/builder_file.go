package reqres

import (
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// BuildFileResponse resolves urlPath under root and returns the resulting
// file as a 200, or an empty-bodied 404 if it does not exist, is a
// directory, or would resolve outside root.
func BuildFileResponse(root, urlPath string) *Response {
	rel := strings.TrimPrefix(urlPath, "/")
	clean := filepath.Clean(filepath.Join(root, rel))

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return notFound()
	}
	absClean, err := filepath.Abs(clean)
	if err != nil || (absClean != absRoot && !strings.HasPrefix(absClean, absRoot+string(filepath.Separator))) {
		return notFound()
	}

	info, err := os.Stat(absClean)
	if err != nil || info.IsDir() {
		return notFound()
	}

	body, err := os.ReadFile(absClean)
	if err != nil {
		return notFound()
	}

	ct := mime.TypeByExtension(filepath.Ext(absClean))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Response{Status: 200, ContentType: ct, Body: body}
}

func notFound() *Response {
	return &Response{Status: 404, ContentType: "text/html", Body: nil}
}
