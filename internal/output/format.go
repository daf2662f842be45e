// Package output serializes requirements documents to Markdown, JSON, and
// YAML, and reads saved JSON, YAML, or Markdown documents back for
// refinement. Section order always follows the document.
package output

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format names an output encoding.
type Format string

const (
	Markdown Format = "markdown"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

// ErrUnsupportedFormat reports an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ParseFormat resolves a format name, accepting md and yml aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q (use markdown, json, or yaml)", ErrUnsupportedFormat, name)
	}
}

// FileExtension returns the extension, without dot, used for f.
func FileExtension(f Format) string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return "md"
	}
}

// FormatFromPath infers a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, filepath.Base(path))
	}
	return ParseFormat(ext)
}

// DefaultPath returns "<stem>-requirements.<ext>" in dir for the first input.
func DefaultPath(dir, firstInput string, f Format) string {
	base := filepath.Base(firstInput)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		stem = "featuregen"
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, stem+"-requirements."+FileExtension(f))
}
