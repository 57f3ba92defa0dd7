package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

func DetectContentType(name string) string {
	if isTextLike(name) {
		return "text/plain; charset=utf-8"
	} else if mimeType := mime.TypeByExtension(filepath.Ext(name)); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}

// chat logs and character cards are stored in these
func isTextLike(name string) bool {
	return strings.HasSuffix(name, ".jsonl") ||
		strings.HasSuffix(name, ".yaml") ||
		strings.HasSuffix(name, ".yml") ||
		strings.HasSuffix(name, ".md")
}
