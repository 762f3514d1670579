package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/applist/internal/model"
)

// JSONFormatter formats items as a JSON array.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes items as a JSON array. A nil list is written as [].
func (f *JSONFormatter) Format(w io.Writer, items []model.DisplayItem) error {
	if items == nil {
		items = []model.DisplayItem{}
	}
	encoder := json.NewEncoder(w)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(items)
}

// YAMLFormatter formats items as a YAML sequence.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Format writes items as YAML.
func (f *YAMLFormatter) Format(w io.Writer, items []model.DisplayItem) error {
	if items == nil {
		items = []model.DisplayItem{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
