package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/applist/internal/dbus"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output app list status in Waybar's custom module JSON format.

This is designed to be used with Waybar's custom module:

  "custom/applist": {
    "exec": "applist status",
    "interval": 5,
    "return-type": "json",
    "on-click": "applist tui"
  }

The output includes:
  - text: Number of open windows
  - alt/class: running, idle (no windows) or offline (no daemon)
  - tooltip: Window, pinned and item counts`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	client, err := dbus.NewClient(logger)
	if err != nil {
		logger.Debug("daemon unavailable", "error", err)
		return outputStatus(WaybarStatus{Text: "", Alt: "offline", Class: "offline"})
	}

	st, err := client.Status(ctx)
	if err != nil {
		return outputStatus(WaybarStatus{Text: "", Alt: "error", Class: "error"})
	}
	return outputStatus(generateStatus(st))
}

// generateStatus creates a WaybarStatus from daemon counts.
func generateStatus(st dbus.Status) WaybarStatus {
	tooltip := fmt.Sprintf("Windows: %d\nPinned: %d\nItems: %d", st.Windows, st.Pinned, st.Items)
	if st.Windows == 0 {
		return WaybarStatus{Text: "", Alt: "idle", Tooltip: tooltip, Class: "idle"}
	}
	return WaybarStatus{
		Text:       fmt.Sprintf("%d", st.Windows),
		Alt:        "running",
		Tooltip:    tooltip,
		Class:      "running",
		Percentage: min(int(st.Windows), 100),
	}
}

// outputStatus writes the status as JSON.
func outputStatus(status WaybarStatus) error {
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(status)
}
