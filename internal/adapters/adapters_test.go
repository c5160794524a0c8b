package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	hook "github.com/robotn/gohook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepperonas/Affentanz/internal/input"
	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/screen"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	closed := false
	r.MustRegister("fake", func(opts Options) (*Backend, error) {
		assert.Equal(t, "deu", opts.OCRLanguage)
		return &Backend{
			Injector: NewLogInjector(),
			close: func() error {
				closed = true
				return nil
			},
		}, nil
	})
	r.MustRegister("broken", func(Options) (*Backend, error) {
		return nil, errors.New("no display")
	})

	assert.Equal(t, []string{"broken", "fake"}, r.Names())
	require.Error(t, r.Register("fake", func(Options) (*Backend, error) { return nil, nil }))
	require.Error(t, r.Register("", nil))

	backend, err := r.Open("fake", Options{OCRLanguage: "deu"})
	require.NoError(t, err)
	assert.Equal(t, "fake", backend.Name)
	require.NoError(t, backend.Close())
	assert.True(t, closed)

	_, err = r.Open("broken", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")

	_, err = r.Open("missing", Options{})
	require.ErrorIs(t, err, ErrUnknownBackend)

	var nilBackend *Backend
	assert.NoError(t, nilBackend.Close())
}

func TestDefaultRegistryNames(t *testing.T) {
	assert.Equal(t, []string{BackendDryRun, BackendRobot}, Names())
}

func TestLogInjector(t *testing.T) {
	ctx := context.Background()
	l := NewLogInjector()

	require.NoError(t, l.Click(ctx, 1, 2, models.ButtonLeft, true))
	require.NoError(t, l.Move(ctx, 1, 2))
	require.NoError(t, l.Drag(ctx, 1, 2, 3, 4, models.ButtonRight))
	require.NoError(t, l.PressKeys(ctx, []string{"ctrl", "s"}))
	require.NoError(t, l.TypeText(ctx, "hello"))
	require.ErrorIs(t, l.PressKeys(ctx, nil), input.ErrInjection)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, l.Move(cancelled, 0, 0), context.Canceled)
}

func TestRectBetween(t *testing.T) {
	assert.Equal(t, screen.Rect{X: 10, Y: 20, Width: 30, Height: 40}, RectBetween(Point{10, 20}, Point{40, 60}))
	assert.Equal(t, screen.Rect{X: 10, Y: 20, Width: 30, Height: 40}, RectBetween(Point{40, 60}, Point{10, 20}))
	assert.True(t, RectBetween(Point{5, 5}, Point{5, 9}).Empty())
}

func fakePicker(events ...hook.Event) (*Picker, *bool) {
	ended := false
	ch := make(chan hook.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	return &Picker{
		start: func() chan hook.Event { return ch },
		end:   func() { ended = true },
	}, &ended
}

func TestPickPoint(t *testing.T) {
	p, ended := fakePicker(
		hook.Event{Kind: hook.MouseMove, X: 1, Y: 1},
		hook.Event{Kind: hook.MouseHold, X: 300, Y: 400},
	)
	point, err := p.PickPoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Point{X: 300, Y: 400}, point)
	assert.True(t, *ended)
}

func TestPickRegion(t *testing.T) {
	p, _ := fakePicker(
		hook.Event{Kind: hook.MouseUp, X: 9, Y: 9},
		hook.Event{Kind: hook.MouseHold, X: 50, Y: 50},
		hook.Event{Kind: hook.MouseUp, X: 50, Y: 50},
		hook.Event{Kind: hook.MouseHold, X: 100, Y: 80},
		hook.Event{Kind: hook.MouseUp, X: 20, Y: 10},
	)
	rect, err := p.PickRegion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, screen.Rect{X: 20, Y: 10, Width: 80, Height: 70}, rect)
}

func TestPickCancel(t *testing.T) {
	p, _ := fakePicker(hook.Event{Kind: hook.KeyDown, Keycode: hook.Keycode["esc"]})
	_, err := p.PickPoint(context.Background())
	require.ErrorIs(t, err, ErrPickCancelled)

	p, _ = fakePicker()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.PickRegion(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
