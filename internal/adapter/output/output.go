// Package output provides output formatters for display lists.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmylchreest/applist/internal/model"
)

// Formatter formats display items for output.
type Formatter interface {
	// Format writes formatted items to the writer.
	Format(w io.Writer, items []model.DisplayItem) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatDmenu FormatType = "dmenu"
	FormatKeys  FormatType = "keys"
)

// FormatTypes lists the supported formats in help order.
var FormatTypes = []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatDmenu, FormatKeys}

// ParseFormatType validates a format name.
func ParseFormatType(s string) (FormatType, error) {
	f := FormatType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range FormatTypes {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter()
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatKeys:
		return NewKeysFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template  string // Custom template for dmenu format
	ShowIndex bool   // Show 1-based index prefix
	ShowTime  bool   // Show relative open time
	Separator string // Field separator for dmenu format
	Compact   bool   // JSON without indentation

	Now func() time.Time // Reference time for relative times (nil = time.Now)
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex: true,
		ShowTime:  true,
		Separator: " | ",
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
