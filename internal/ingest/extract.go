// Package ingest covers upload validation, raw file storage, and the
// built-in text extraction used during document processing. Extraction is a
// swappable backend; richer format support plugs in behind Extractor.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Segment is one extracted span of document text.
type Segment struct {
	Text        string
	Ordinal     int
	StartOffset int
	EndOffset   int
}

// Extractor turns a stored file into ordered text segments.
type Extractor interface {
	Extract(path, filename string) ([]Segment, error)
}

// SupportedExtensions lists the formats the built-in extractor accepts.
var SupportedExtensions = []string{".txt", ".md"}

// ValidateFilename rejects uploads whose extension no extractor handles.
func ValidateFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// TextExtractor reads plain-text and markdown files and splits them into
// paragraph segments on blank lines, recording byte offsets into the
// original content.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

func (e *TextExtractor) Extract(path, filename string) ([]Segment, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	contentBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return SplitParagraphs(string(contentBytes)), nil
}

// A paragraph break is a newline followed by an optionally-whitespace-only
// line.
var paragraphSep = regexp.MustCompile(`\n[ \t\r]*\n`)

// SplitParagraphs splits content into paragraphs separated by blank lines.
// Offsets refer to the paragraph's byte span in the input with surrounding
// whitespace trimmed. Whitespace-only paragraphs are dropped.
func SplitParagraphs(content string) []Segment {
	var segments []Segment
	ordinal := 0

	pos := 0
	for {
		loc := paragraphSep.FindStringIndex(content[pos:])
		var raw string
		var next int
		if loc == nil {
			raw = content[pos:]
		} else {
			raw = content[pos : pos+loc[0]]
			next = pos + loc[1]
		}

		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			leading := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
			start := pos + leading
			segments = append(segments, Segment{
				Text:        trimmed,
				Ordinal:     ordinal,
				StartOffset: start,
				EndOffset:   start + len(trimmed),
			})
			ordinal++
		}

		if loc == nil {
			break
		}
		pos = next
	}
	return segments
}
