// Package screen reads colors and text from monitor regions.
package screen

import (
	"context"
	"errors"
	"fmt"

	"github.com/pepperonas/Affentanz/internal/models"
)

var (
	// ErrUnknownMonitor is returned for a monitor index the system does not have.
	ErrUnknownMonitor = errors.New("unknown monitor")

	// ErrRegionOutOfBounds is returned when a region leaves its monitor.
	ErrRegionOutOfBounds = errors.New("region out of monitor bounds")

	// ErrOCRUnavailable is returned by ReadText when no recognizer is configured.
	ErrOCRUnavailable = errors.New("text recognition unavailable")
)

// Probe reads the current state of the screen. Regions are monitor-local.
type Probe interface {
	// SampleColor returns the representative color of a region.
	SampleColor(ctx context.Context, region models.Region) (models.RGB, error)

	// ReadText returns recognized text in a region. It may be empty.
	ReadText(ctx context.Context, region models.Region) (string, error)

	// MonitorBounds returns the global rectangle of a monitor.
	MonitorBounds(index int) (Rect, error)
}

// Rect is a rectangle in global desktop coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y &&
		o.X+o.Width <= r.X+r.Width &&
		o.Y+o.Height <= r.Y+r.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// ToGlobal offsets a monitor-local region by its monitor bounds and rejects
// regions that do not fit the monitor.
func ToGlobal(monitor Rect, region models.Region) (Rect, error) {
	local := Rect{X: 0, Y: 0, Width: monitor.Width, Height: monitor.Height}
	r := Rect{X: region.X, Y: region.Y, Width: region.Width, Height: region.Height}
	if r.Empty() || !local.Contains(r) {
		return Rect{}, fmt.Errorf("%w: %s on monitor %d (%dx%d)",
			ErrRegionOutOfBounds, r, region.Monitor, monitor.Width, monitor.Height)
	}
	r.X += monitor.X
	r.Y += monitor.Y
	return r, nil
}

// GlobalPoint offsets a monitor-local point by its monitor bounds.
func GlobalPoint(monitor Rect, x, y int) (int, int) {
	return monitor.X + x, monitor.Y + y
}
