package input

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/applist/internal/model"
)

func TestNewSource(t *testing.T) {
	tests := []struct {
		source string
		name   string
	}{
		{"", "stdin"},
		{"-", "stdin"},
		{"stdin", "stdin"},
		{"/tmp/events.jsonl", "/tmp/events.jsonl"},
		{"exec:bridge --json", "bridge --json"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			src, err := NewSource(tt.source, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.name, src.Name())
		})
	}

	_, err := NewSource("exec:", nil)
	var adapterErr *AdapterError
	assert.True(t, errors.As(err, &adapterErr))
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    model.Event
		wantErr bool
	}{
		{
			name: "created",
			line: `{"type":"window_created","id":"w1","app_id":"firefox","title":"Firefox","outputs":["DP-1"],"workspace":"1"}`,
			want: model.Event{Type: model.EventWindowCreated, ID: "w1", AppID: "firefox", Title: "Firefox", Outputs: []string{"DP-1"}, Workspace: "1"},
		},
		{
			name: "alias and control characters",
			line: `{"type":"closed","id":"w1","title":"a\u0007b "}`,
			want: model.Event{Type: model.EventWindowClosed, ID: "w1", Title: "a b"},
		},
		{
			name: "focus event without id",
			line: `{"type":"workspace_focus_changed","workspace":"2"}`,
			want: model.Event{Type: model.EventWorkspaceFocusChanged, Workspace: "2"},
		},
		{name: "missing window id", line: `{"type":"window_created","app_id":"x"}`, wantErr: true},
		{name: "unknown type", line: `{"type":"window_exploded","id":"w1"}`, wantErr: true},
		{name: "not json", line: `window_created w1`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent([]byte(tt.line))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReaderSource_SkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"window_created","id":"w1","app_id":"kitty"}`,
		``,
		`garbage`,
		`{"type":"window_title_changed","id":"w1","title":"vim"}`,
		`{"type":"window_created"}`,
		`{"type":"window_closed","id":"w1"}`,
	}, "\n")

	events, err := ReadAll(context.Background(), NewReaderSource("test", strings.NewReader(input), nil))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.EventWindowCreated, events[0].Type)
	assert.Equal(t, "vim", events[1].Title)
	assert.Equal(t, model.EventWindowClosed, events[2].Type)
}

func TestReaderSource_SkipsOversizedLines(t *testing.T) {
	huge := `{"type":"window_created","id":"big","title":"` + strings.Repeat("x", 2*maxLineSize) + `"}`
	input := strings.Join([]string{
		huge,
		`{"type":"window_created","id":"w1","app_id":"kitty"}`,
		`{"type":"window_title_changed","id":"w1","title":"` + strings.Repeat("y", maxLineSize/2) + `"}`,
		`{"type":"window_closed","id":"w1"}`,
	}, "\r\n")

	events, err := ReadAll(context.Background(), NewReaderSource("test", strings.NewReader(input), nil))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "w1", events[0].ID)
	assert.Len(t, events[1].Title, maxLineSize/2)
	assert.Equal(t, model.EventWindowClosed, events[2].Type)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"output_focus_changed","output":"HDMI-A-1"}`+"\n"), 0644))

	events, err := ReadAll(context.Background(), NewFileSource(path, nil))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "HDMI-A-1", events[0].Output)

	_, err = ReadAll(context.Background(), NewFileSource(filepath.Join(t.TempDir(), "missing"), nil))
	var adapterErr *AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCommandSource(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	src := NewCommandSource([]string{"/bin/sh", "-c", `echo '{"type":"window_created","id":"w1","app_id":"foot"}'`}, nil)
	events, err := ReadAll(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "foot", events[0].AppID)

	failing := NewCommandSource([]string{"/bin/sh", "-c", "exit 3"}, nil)
	_, err = ReadAll(context.Background(), failing)
	assert.Error(t, err)
}
