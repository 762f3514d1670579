package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/applist/internal/core"
	"github.com/jmylchreest/applist/internal/model"
)

// DmenuFormatter formats items for dmenu/rofi/fuzzel, one per line.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter. An invalid template
// falls back to the default layout.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := ParseTemplate(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// ParseTemplate parses a dmenu line template with the helper functions
// available.
func ParseTemplate(text string) (*template.Template, error) {
	return template.New("dmenu").Funcs(templateFuncs()).Parse(text)
}

// Format writes items in dmenu format.
func (f *DmenuFormatter) Format(w io.Writer, items []model.DisplayItem) error {
	now := f.opts.now()
	for i := range items {
		line := f.formatLine(i+1, &items[i], now)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (f *DmenuFormatter) formatLine(index int, item *model.DisplayItem, now time.Time) string {
	opened := ""
	if item.OpenedAt > 0 {
		opened = humanize.RelTime(time.Unix(item.OpenedAt, 0), now, "ago", "from now")
	}

	if f.template != nil {
		var buf strings.Builder
		data := templateData{
			DisplayItem: item,
			Index:       index,
			Key:         item.Key(),
			Opened:      opened,
		}
		if err := f.template.Execute(&buf, data); err == nil {
			return strings.ReplaceAll(buf.String(), "\n", " ")
		}
	}

	// Default format: index | app | title | opened
	var parts []string
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	if f.opts.ShowIndex {
		parts = append(parts, strconv.Itoa(index))
	}

	parts = append(parts, appLabel(item))
	if item.Title != "" {
		parts = append(parts, item.Title)
	}

	if f.opts.ShowTime && opened != "" {
		parts = append(parts, opened)
	}

	return strings.Join(parts, sep)
}

// templateData provides data for custom templates. Item fields such as
// .AppID and .Title are promoted.
type templateData struct {
	*model.DisplayItem
	Index  int
	Key    string
	Opened string
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": core.TruncateTitle,
		"pin": func(pinned bool) string {
			if pinned {
				return "*"
			}
			return ""
		},
		"count": func(windows []string) int {
			return len(windows)
		},
	}
}

// KeysFormatter outputs item keys, one per line.
// Useful for scripting (e.g., piping into `applist reorder`).
type KeysFormatter struct{}

// NewKeysFormatter creates a new keys formatter.
func NewKeysFormatter() *KeysFormatter {
	return &KeysFormatter{}
}

// Format writes item keys to the writer.
func (f *KeysFormatter) Format(w io.Writer, items []model.DisplayItem) error {
	for i := range items {
		if _, err := fmt.Fprintln(w, items[i].Key()); err != nil {
			return err
		}
	}
	return nil
}
