package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pepperonas/Affentanz/internal/adapters"
	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/screen"
)

var pickRegion bool

func init() {
	rootCmd.AddCommand(monitorsCmd)
	rootCmd.AddCommand(pickCmd)

	pickCmd.Flags().BoolVar(&pickRegion, "region", false, "drag a rectangle instead of clicking a point")
}

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List attached monitors and their bounds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		desktop, release, err := adapters.OpenDesktop(adapters.Options{DisableOCR: true})
		if err != nil {
			return err
		}
		defer release()

		monitors := desktop.Monitors()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), monitors)
		}
		rows := make([][]string, 0, len(monitors))
		for _, m := range monitors {
			rows = append(rows, []string{
				strconv.Itoa(m.Index),
				fmt.Sprintf("%dx%d", m.Bounds.Width, m.Bounds.Height),
				fmt.Sprintf("%d,%d", m.Bounds.X, m.Bounds.Y),
			})
		}
		return writeTable(cmd.OutOrStdout(), []string{"MONITOR", "SIZE", "ORIGIN"}, rows)
	},
}

// pickedPoint uses the workflow document's field names so it can be pasted
// into a click or color wait.
type pickedPoint struct {
	X            int    `json:"x"`
	Y            int    `json:"y"`
	MonitorIndex int    `json:"monitorIndex"`
	Color        string `json:"color"`
}

type pickedRegion struct {
	X            int `json:"x"`
	Y            int `json:"y"`
	Width        int `json:"width"`
	Height       int `json:"height"`
	MonitorIndex int `json:"monitorIndex"`
}

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Pick a screen position and color, or a region",
	Long: `Click anywhere on screen to print the position in monitor coordinates
together with the color under the pointer. With --region, drag a rectangle
to print a condition region. Press Escape to cancel.

The region is clipped to the monitor holding its top-left corner.`,
	Example: `  affentanz pick
  affentanz pick --region --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		desktop, release, err := adapters.OpenDesktop(adapters.Options{DisableOCR: true})
		if err != nil {
			return err
		}
		defer release()

		picker := adapters.NewPicker()
		if !IsJSONOutput() && !IsJSONLOutput() {
			if pickRegion {
				fmt.Fprintln(os.Stderr, "Drag a rectangle around the region (Esc to cancel)")
			} else {
				fmt.Fprintln(os.Stderr, "Click the point to pick (Esc to cancel)")
			}
		}

		var result any
		if pickRegion {
			rect, err := picker.PickRegion(ctx)
			if err != nil {
				return err
			}
			region, err := localRegion(desktop, rect)
			if err != nil {
				return err
			}
			result = region
		} else {
			point, err := picker.PickPoint(ctx)
			if err != nil {
				return err
			}
			picked, err := samplePoint(ctx, desktop, point)
			if err != nil {
				return err
			}
			result = picked
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), result)
		}
		switch r := result.(type) {
		case pickedPoint:
			fmt.Fprintf(cmd.OutOrStdout(), "monitor %d at (%d, %d), color %s\n", r.MonitorIndex, r.X, r.Y, r.Color)
		case pickedRegion:
			fmt.Fprintf(cmd.OutOrStdout(), "monitor %d, %dx%d at (%d, %d)\n", r.MonitorIndex, r.Width, r.Height, r.X, r.Y)
		}
		return nil
	},
}

func samplePoint(ctx context.Context, desktop *screen.Desktop, point adapters.Point) (pickedPoint, error) {
	monitor, x, y, err := desktop.Locate(point.X, point.Y)
	if err != nil {
		return pickedPoint{}, err
	}
	color, err := desktop.SampleColor(ctx, models.Region{X: x, Y: y, Width: 1, Height: 1, Monitor: monitor.Index})
	if err != nil {
		return pickedPoint{}, err
	}
	return pickedPoint{X: x, Y: y, MonitorIndex: monitor.Index, Color: color.Hex()}, nil
}

func localRegion(desktop *screen.Desktop, rect screen.Rect) (pickedRegion, error) {
	monitor, x, y, err := desktop.Locate(rect.X, rect.Y)
	if err != nil {
		return pickedRegion{}, err
	}
	return clipRegion(monitor, x, y, rect.Width, rect.Height), nil
}

func clipRegion(monitor screen.Monitor, x, y, width, height int) pickedRegion {
	width = min(width, monitor.Bounds.Width-x)
	height = min(height, monitor.Bounds.Height-y)
	return pickedRegion{X: x, Y: y, Width: width, Height: height, MonitorIndex: monitor.Index}
}
