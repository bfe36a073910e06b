// Package document turns uploaded files into plain-text passages.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedType = errors.New("unsupported file type (only PDF and TXT allowed)")

// ContentType resolves the content type of an upload, falling back to the
// filename extension when the client sent none.
func ContentType(filename, declared string) (string, error) {
	ct := strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	if ct == "" || ct == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".txt":
			ct = "text/plain"
		case ".pdf":
			ct = "application/pdf"
		}
	}
	switch ct {
	case "text/plain", "application/pdf":
		return ct, nil
	default:
		return "", ErrUnsupportedType
	}
}

// ExtractText returns the passage text of a TXT or PDF upload.
func ExtractText(contentType string, content []byte) (string, error) {
	switch contentType {
	case "text/plain":
		if !utf8.Valid(content) {
			return "", errors.New("text file is not valid UTF-8")
		}
		return string(content), nil
	case "application/pdf":
		text, err := extractPDF(content)
		if err != nil {
			return "", fmt.Errorf("pdf extraction failed: %w", err)
		}
		return text, nil
	default:
		return "", ErrUnsupportedType
	}
}

func extractPDF(content []byte) (string, error) {
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}
