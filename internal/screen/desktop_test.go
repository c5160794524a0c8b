package screen

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepperonas/Affentanz/internal/models"
)

type fakeDisplay struct {
	monitors []Rect
	fill     func(x, y int) color.Color
	captured []Rect
	err      error
}

func (f *fakeDisplay) NumDisplays() int { return len(f.monitors) }

func (f *fakeDisplay) DisplayBounds(index int) Rect { return f.monitors[index] }

func (f *fakeDisplay) Capture(_ context.Context, rect Rect) (image.Image, error) {
	f.captured = append(f.captured, rect)
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, rect.Width, rect.Height))
	for y := 0; y < rect.Height; y++ {
		for x := 0; x < rect.Width; x++ {
			img.Set(x, y, f.fill(rect.X+x, rect.Y+y))
		}
	}
	return img, nil
}

type fakeRecognizer struct {
	text string
}

func (f fakeRecognizer) Recognize(context.Context, image.Image) (string, error) {
	return f.text, nil
}

func twoMonitors() *fakeDisplay {
	return &fakeDisplay{
		monitors: []Rect{
			{X: 0, Y: 0, Width: 1920, Height: 1080},
			{X: 1920, Y: 0, Width: 1280, Height: 1024},
		},
		fill: func(int, int) color.Color { return color.RGBA{R: 10, G: 20, B: 30, A: 255} },
	}
}

func TestMonitorBounds(t *testing.T) {
	d := NewDesktop(twoMonitors(), nil)

	b, err := d.MonitorBounds(1)
	require.NoError(t, err)
	assert.Equal(t, 1920, b.X)

	_, err = d.MonitorBounds(2)
	require.ErrorIs(t, err, ErrUnknownMonitor)
	_, err = d.MonitorBounds(-1)
	require.ErrorIs(t, err, ErrUnknownMonitor)

	assert.Len(t, d.Monitors(), 2)
}

func TestSampleColorResolvesMonitorOffset(t *testing.T) {
	display := twoMonitors()
	d := NewDesktop(display, nil)

	got, err := d.SampleColor(context.Background(), models.Region{X: 10, Y: 5, Width: 4, Height: 2, Monitor: 1})
	require.NoError(t, err)
	assert.Equal(t, models.RGB{R: 10, G: 20, B: 30}, got)

	require.Len(t, display.captured, 1)
	assert.Equal(t, Rect{X: 1930, Y: 5, Width: 4, Height: 2}, display.captured[0])
}

func TestSampleColorAveragesRegion(t *testing.T) {
	display := twoMonitors()
	display.fill = func(x, _ int) color.Color {
		if x%2 == 0 {
			return color.RGBA{R: 0, G: 0, B: 0, A: 255}
		}
		return color.RGBA{R: 255, G: 100, B: 50, A: 255}
	}
	d := NewDesktop(display, nil)

	got, err := d.SampleColor(context.Background(), models.Region{X: 0, Y: 0, Width: 2, Height: 2})
	require.NoError(t, err)
	assert.Equal(t, models.RGB{R: 128, G: 50, B: 25}, got)
}

func TestSampleColorErrors(t *testing.T) {
	display := twoMonitors()
	d := NewDesktop(display, nil)
	ctx := context.Background()

	_, err := d.SampleColor(ctx, models.Region{Width: 1, Height: 1, Monitor: 5})
	require.ErrorIs(t, err, ErrUnknownMonitor)

	_, err = d.SampleColor(ctx, models.Region{X: 1270, Y: 0, Width: 20, Height: 1, Monitor: 1})
	require.ErrorIs(t, err, ErrRegionOutOfBounds)

	display.err = errors.New("boom")
	_, err = d.SampleColor(ctx, models.Region{Width: 1, Height: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = d.SampleColor(cancelled, models.Region{Width: 1, Height: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadText(t *testing.T) {
	d := NewDesktop(twoMonitors(), fakeRecognizer{text: "Ready"})
	got, err := d.ReadText(context.Background(), models.Region{Width: 10, Height: 10})
	require.NoError(t, err)
	assert.Equal(t, "Ready", got)

	_, err = NewDesktop(twoMonitors(), nil).ReadText(context.Background(), models.Region{Width: 10, Height: 10})
	require.ErrorIs(t, err, ErrOCRUnavailable)
}

func TestToGlobal(t *testing.T) {
	monitor := Rect{X: -1280, Y: 100, Width: 1280, Height: 800}

	r, err := ToGlobal(monitor, models.Region{X: 0, Y: 0, Width: 1280, Height: 800})
	require.NoError(t, err)
	assert.Equal(t, Rect{X: -1280, Y: 100, Width: 1280, Height: 800}, r)

	_, err = ToGlobal(monitor, models.Region{X: 0, Y: 1, Width: 1280, Height: 800})
	require.ErrorIs(t, err, ErrRegionOutOfBounds)

	x, y := GlobalPoint(monitor, 5, 6)
	assert.Equal(t, -1275, x)
	assert.Equal(t, 106, y)
}

func TestLocate(t *testing.T) {
	d := NewDesktop(twoMonitors(), nil)

	m, x, y, err := d.Locate(2000, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, 80, x)
	assert.Equal(t, 50, y)

	m, x, y, err = d.Locate(1919, 1079)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Index)
	assert.Equal(t, 1919, x)
	assert.Equal(t, 1079, y)

	_, _, _, err = d.Locate(2000, 1050)
	require.ErrorIs(t, err, ErrUnknownMonitor)
}
