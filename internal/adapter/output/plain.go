package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/mattn/go-runewidth"

	"github.com/jmylchreest/applist/internal/model"
)

const maxAppColumn = 32

// PlainFormatter writes one aligned row per item.
type PlainFormatter struct {
	opts FormatterOptions
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	return &PlainFormatter{opts: opts}
}

// Format writes items as aligned columns:
//
//	[1] * firefox      group        Mozilla Firefox (2 windows, 3 minutes ago)
func (f *PlainFormatter) Format(w io.Writer, items []model.DisplayItem) error {
	appWidth := 0
	for i := range items {
		appWidth = max(appWidth, runewidth.StringWidth(appLabel(&items[i])))
	}
	appWidth = min(appWidth, maxAppColumn)

	now := f.opts.now()
	for i := range items {
		if _, err := io.WriteString(w, f.formatRow(i+1, &items[i], appWidth, now)); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatRow(index int, item *model.DisplayItem, appWidth int, now time.Time) string {
	var sb strings.Builder

	if f.opts.ShowIndex {
		fmt.Fprintf(&sb, "[%d] ", index)
	}

	if item.Pinned {
		sb.WriteString("* ")
	} else {
		sb.WriteString("  ")
	}

	app := runewidth.Truncate(appLabel(item), appWidth, "…")
	sb.WriteString(runewidth.FillRight(app, appWidth))
	sb.WriteString("  ")
	sb.WriteString(runewidth.FillRight(item.Kind.String(), len("placeholder")))

	if item.Title != "" {
		sb.WriteString("  ")
		sb.WriteString(item.Title)
	}

	var details []string
	if item.Kind == model.ItemGroup {
		details = append(details, english.Plural(item.WindowCount(), "window", ""))
	}
	if f.opts.ShowTime && item.OpenedAt > 0 {
		details = append(details, humanize.RelTime(time.Unix(item.OpenedAt, 0), now, "ago", "from now"))
	}
	if len(details) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(details, ", "))
	}

	sb.WriteString("\n")
	return sb.String()
}

func appLabel(item *model.DisplayItem) string {
	if item.AppID == "" {
		return "?"
	}
	return item.AppID
}
