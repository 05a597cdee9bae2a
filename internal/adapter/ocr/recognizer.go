// Package ocr turns uploaded invoice files into plain text.
package ocr

import (
	"context"
	"strings"
)

const mimePDF = "application/pdf"

// Recognizer extracts the full text of a document.
type Recognizer interface {
	Recognize(ctx context.Context, content []byte, mimeType string) (string, error)
}

// Supported reports whether mimeType can be recognized.
func Supported(mimeType string) bool {
	mimeType = normalizeMIME(mimeType)
	return mimeType == mimePDF || strings.HasPrefix(mimeType, "image/")
}

func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
