package compare

import (
	"mime"
	"path/filepath"
	"strings"
)

// FileKind classifies content as text or binary
type FileKind string

const (
	KindText   FileKind = "text"
	KindBinary FileKind = "binary"
)

var textExtensions = map[string]bool{
	".txt":  true,
	".csv":  true,
	".json": true,
	".xml":  true,
	".html": true,
	".md":   true,
}

// ClassifyPath classifies a file by its extension. Content is never inspected.
func ClassifyPath(path string) FileKind {
	if textExtensions[strings.ToLower(filepath.Ext(path))] {
		return KindText
	}
	return KindBinary
}

// ClassifyContentType classifies a Content-Type header value.
// text/*, JSON and XML media types (including +json and +xml suffixes) are text.
func ClassifyContentType(contentType string) FileKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}

	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return KindText
	case mediaType == "application/json", mediaType == "application/xml":
		return KindText
	case strings.HasSuffix(mediaType, "+json"), strings.HasSuffix(mediaType, "+xml"):
		return KindText
	}
	return KindBinary
}
