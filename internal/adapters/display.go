package adapters

import (
	"context"
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"

	"github.com/pepperonas/Affentanz/internal/screen"
)

// RobotDisplay enumerates monitors and captures the screen through robotgo.
type RobotDisplay struct{}

// NewRobotDisplay creates a robotgo-backed display.
func NewRobotDisplay() *RobotDisplay {
	return &RobotDisplay{}
}

// NumDisplays returns the number of attached monitors.
func (RobotDisplay) NumDisplays() int {
	return robotgo.DisplaysNum()
}

// DisplayBounds returns the global rectangle of monitor index.
func (RobotDisplay) DisplayBounds(index int) screen.Rect {
	x, y, w, h := robotgo.GetDisplayBounds(index)
	return screen.Rect{X: x, Y: y, Width: w, Height: h}
}

// Capture grabs the pixels of a global rectangle.
func (RobotDisplay) Capture(ctx context.Context, rect screen.Rect) (img image.Image, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("capture panicked: %v", r)
		}
	}()
	return robotgo.CaptureImg(rect.X, rect.Y, rect.Width, rect.Height)
}
