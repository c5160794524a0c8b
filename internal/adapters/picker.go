package adapters

import (
	"context"
	"errors"

	hook "github.com/robotn/gohook"

	"github.com/pepperonas/Affentanz/internal/screen"
)

// ErrPickCancelled is returned when the user aborts a pick with Escape.
var ErrPickCancelled = errors.New("pick cancelled")

// Point is a global desktop position.
type Point struct {
	X int
	Y int
}

// Picker captures pointer positions chosen by the user.
type Picker struct {
	start func() chan hook.Event
	end   func()
}

// NewPicker creates a picker listening to global input through gohook.
func NewPicker() *Picker {
	return &Picker{start: hook.Start, end: hook.End}
}

// PickPoint blocks until the user presses a mouse button and returns the
// pointer position.
func (p *Picker) PickPoint(ctx context.Context) (Point, error) {
	var point Point
	err := p.listen(ctx, func(ev hook.Event) bool {
		if ev.Kind != hook.MouseHold {
			return false
		}
		point = Point{X: int(ev.X), Y: int(ev.Y)}
		return true
	})
	return point, err
}

// PickRegion blocks until the user drags a rectangle and returns it. The
// corners may be dragged in any direction.
func (p *Picker) PickRegion(ctx context.Context) (screen.Rect, error) {
	var (
		from    Point
		pressed bool
		rect    screen.Rect
	)
	err := p.listen(ctx, func(ev hook.Event) bool {
		switch ev.Kind {
		case hook.MouseHold:
			from = Point{X: int(ev.X), Y: int(ev.Y)}
			pressed = true
		case hook.MouseUp:
			if !pressed {
				return false
			}
			rect = RectBetween(from, Point{X: int(ev.X), Y: int(ev.Y)})
			if rect.Empty() {
				pressed = false
				return false
			}
			return true
		}
		return false
	})
	return rect, err
}

// listen feeds hook events to accept until it returns true, the user
// presses Escape or ctx is done.
func (p *Picker) listen(ctx context.Context, accept func(hook.Event) bool) error {
	events := p.start()
	defer p.end()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return ErrPickCancelled
			}
			if ev.Kind == hook.KeyDown && ev.Keycode == hook.Keycode["esc"] {
				return ErrPickCancelled
			}
			if accept(ev) {
				return nil
			}
		}
	}
}

// RectBetween returns the rectangle spanned by two corners.
func RectBetween(a, b Point) screen.Rect {
	x0, x1 := min(a.X, b.X), max(a.X, b.X)
	y0, y1 := min(a.Y, b.Y), max(a.Y, b.Y)
	return screen.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
