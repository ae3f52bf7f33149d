// Package convert detects a source document's format and converts it to
// Markdown. Binary formats (PDF, DOCX, XLSX, PPTX) are treated as opaque
// collaborators: DetectFormat recognizes them but ConvertToMarkdown only
// handles the formats registered via RegisterConverter, keeping their
// extraction internals outside this module's scope.
package convert

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"sync"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
)

// Format identifies a detected source document format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatXLSX     Format = "xlsx"
	FormatPPTX     Format = "pptx"
	FormatRTF      Format = "rtf"
	FormatUnknown  Format = "unknown"
)

// DetectFormat sniffs the source format from magic bytes / content shape.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("%PDF")):
		return FormatPDF
	case bytes.HasPrefix(trimmed, []byte("{\\rtf1")):
		return FormatRTF
	case bytes.HasPrefix(trimmed, []byte("PK\x03\x04")):
		return detectZipOfficeFormat(trimmed)
	case looksLikeHTML(trimmed):
		return FormatHTML
	case len(trimmed) == 0:
		return FormatUnknown
	default:
		return FormatText
	}
}

func looksLikeHTML(data []byte) bool {
	lower := bytes.ToLower(data)
	return bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<!doctype html")) || bytes.Contains(lower, []byte("<body"))
}

// detectZipOfficeFormat distinguishes OOXML container types by the
// well-known internal path fragments present in the zip's central
// directory listing, without fully unzipping the archive.
func detectZipOfficeFormat(data []byte) Format {
	switch {
	case bytes.Contains(data, []byte("word/")):
		return FormatDOCX
	case bytes.Contains(data, []byte("xl/")):
		return FormatXLSX
	case bytes.Contains(data, []byte("ppt/")):
		return FormatPPTX
	default:
		return FormatUnknown
	}
}

// BinaryConverter extracts Markdown-ready text from a binary format. Actual
// PDF/DOCX/XLSX/PPTX extraction libraries are plugged in by the caller; this
// module never implements their internals.
type BinaryConverter func(data []byte) (string, error)

var (
	registryMu sync.RWMutex
	registry   = map[Format]BinaryConverter{}
)

// RegisterConverter installs a BinaryConverter for a binary format.
func RegisterConverter(format Format, conv BinaryConverter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[format] = conv
}

// ConvertToMarkdown converts data (already identified as format) into
// Markdown text. HTML and plain text are handled directly; any format
// registered via RegisterConverter is delegated to that converter.
func ConvertToMarkdown(format Format, data []byte) (string, error) {
	switch format {
	case FormatMarkdown, FormatText:
		return string(data), nil
	case FormatHTML:
		return htmlToMarkdown(data)
	default:
		registryMu.RLock()
		conv, ok := registry[format]
		registryMu.RUnlock()
		if !ok {
			return "", fmt.Errorf("convert: no converter registered for format %q", format)
		}
		return conv(data)
	}
}

func htmlToMarkdown(data []byte) (string, error) {
	out, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("convert: html to markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ExtractMainContent strips navigation, ads, and boilerplate from an HTML
// page fetched from sourceURL before it is handed to ConvertToMarkdown.
func ExtractMainContent(sourceURL string, data []byte) (string, error) {
	base, _ := url.Parse(sourceURL)
	article, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		return "", fmt.Errorf("convert: readability extraction failed: %w", err)
	}
	return article.Content, nil
}
