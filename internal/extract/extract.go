// Package extract pulls plain text out of uploaded study documents. It is
// deliberately thin: real text extraction is delegated to the PDF library,
// and everything downstream only sees a UTF-8 string.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FromFile reads a document and returns its text content. Supported
// extensions: .pdf, .txt, .md, .markdown.
func FromFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return fromPDF(path)
	case ".txt", ".md", ".markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
}

func fromPDF(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf %s: %w", path, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text from %s: %w", path, err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("extract pdf text from %s: %w", path, err)
	}
	return string(text), nil
}
