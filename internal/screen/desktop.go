package screen

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/pepperonas/Affentanz/internal/logging"
	"github.com/pepperonas/Affentanz/internal/models"
)

// Display enumerates monitors and captures pixels from the desktop.
type Display interface {
	NumDisplays() int
	DisplayBounds(index int) Rect
	Capture(ctx context.Context, rect Rect) (image.Image, error)
}

// Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Monitor describes one attached display.
type Monitor struct {
	Index  int  `json:"index"`
	Bounds Rect `json:"bounds"`
}

// Desktop is a Probe backed by a Display and an optional Recognizer.
// Colors are sampled as the arithmetic mean of every pixel in the region.
type Desktop struct {
	display    Display
	recognizer Recognizer
	logger     zerolog.Logger
}

// NewDesktop creates a desktop probe. recognizer may be nil, in which case
// ReadText fails with ErrOCRUnavailable.
func NewDesktop(display Display, recognizer Recognizer) *Desktop {
	return &Desktop{
		display:    display,
		recognizer: recognizer,
		logger:     logging.Component("screen"),
	}
}

// Monitors lists the attached displays.
func (d *Desktop) Monitors() []Monitor {
	n := d.display.NumDisplays()
	monitors := make([]Monitor, 0, n)
	for i := 0; i < n; i++ {
		monitors = append(monitors, Monitor{Index: i, Bounds: d.display.DisplayBounds(i)})
	}
	return monitors
}

// MonitorBounds returns the global rectangle of a monitor.
func (d *Desktop) MonitorBounds(index int) (Rect, error) {
	if index < 0 || index >= d.display.NumDisplays() {
		return Rect{}, fmt.Errorf("%w: %d", ErrUnknownMonitor, index)
	}
	bounds := d.display.DisplayBounds(index)
	if bounds.Empty() {
		return Rect{}, fmt.Errorf("%w: %d has no area", ErrUnknownMonitor, index)
	}
	return bounds, nil
}

// Locate finds the monitor containing the global point (x, y) and returns
// the point in that monitor's coordinates.
func (d *Desktop) Locate(x, y int) (Monitor, int, int, error) {
	for _, m := range d.Monitors() {
		b := m.Bounds
		if x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height {
			return m, x - b.X, y - b.Y, nil
		}
	}
	return Monitor{}, 0, 0, fmt.Errorf("%w: no monitor contains (%d, %d)", ErrUnknownMonitor, x, y)
}

// SampleColor returns the mean color of the region.
func (d *Desktop) SampleColor(ctx context.Context, region models.Region) (models.RGB, error) {
	img, err := d.capture(ctx, region)
	if err != nil {
		return models.RGB{}, err
	}
	return MeanColor(img), nil
}

// ReadText runs text recognition over the region.
func (d *Desktop) ReadText(ctx context.Context, region models.Region) (string, error) {
	if d.recognizer == nil {
		return "", ErrOCRUnavailable
	}
	img, err := d.capture(ctx, region)
	if err != nil {
		return "", err
	}
	text, err := d.recognizer.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	d.logger.Debug().
		Int("monitor", region.Monitor).
		Int("chars", len(text)).
		Msg("text recognized")
	return text, nil
}

func (d *Desktop) capture(ctx context.Context, region models.Region) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds, err := d.MonitorBounds(region.Monitor)
	if err != nil {
		return nil, err
	}
	rect, err := ToGlobal(bounds, region)
	if err != nil {
		return nil, err
	}
	img, err := d.display.Capture(ctx, rect)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", rect, err)
	}
	return img, nil
}

// MeanColor averages every pixel of img, rounding to the nearest value.
func MeanColor(img image.Image) models.RGB {
	b := img.Bounds()
	count := uint64(b.Dx()) * uint64(b.Dy())
	if count == 0 {
		return models.RGB{}
	}

	var r, g, bl uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			r += uint64(pr >> 8)
			g += uint64(pg >> 8)
			bl += uint64(pb >> 8)
		}
	}

	half := count / 2
	return models.RGB{
		R: uint8((r + half) / count),
		G: uint8((g + half) / count),
		B: uint8((bl + half) / count),
	}
}
