package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog"

	"github.com/pepperonas/Affentanz/internal/input"
	"github.com/pepperonas/Affentanz/internal/logging"
	"github.com/pepperonas/Affentanz/internal/models"
)

// dragSettle separates the button press from the move of a drag.
const dragSettle = 50 * time.Millisecond

// RobotInjector synthesizes input through robotgo. Calls are serialized.
type RobotInjector struct {
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewRobotInjector creates a robotgo-backed injector.
func NewRobotInjector() *RobotInjector {
	return &RobotInjector{logger: logging.Component("injector")}
}

// Click moves to (x, y) and clicks button.
func (r *RobotInjector) Click(ctx context.Context, x, y int, button models.MouseButton, double bool) error {
	return r.do(ctx, "click", func() error {
		robotgo.Move(x, y)
		robotgo.Click(string(button), double)
		return nil
	})
}

// Move moves the pointer to (x, y).
func (r *RobotInjector) Move(ctx context.Context, x, y int) error {
	return r.do(ctx, "move", func() error {
		robotgo.Move(x, y)
		return nil
	})
}

// Drag presses button at the start point, moves to the end point and
// releases it there.
func (r *RobotInjector) Drag(ctx context.Context, fromX, fromY, toX, toY int, button models.MouseButton) error {
	return r.do(ctx, "drag", func() error {
		robotgo.Move(fromX, fromY)
		if err := robotgo.Toggle(string(button)); err != nil {
			return err
		}
		time.Sleep(dragSettle)
		robotgo.Move(toX, toY)
		return robotgo.Toggle(string(button), "up")
	})
}

// PressKeys taps the last key while holding the preceding ones.
func (r *RobotInjector) PressKeys(ctx context.Context, keys []string) error {
	key, modifiers, err := input.SplitCombo(keys)
	if err != nil {
		return err
	}
	args := make([]interface{}, len(modifiers))
	for i, m := range modifiers {
		args[i] = m
	}
	return r.do(ctx, "key", func() error {
		return robotgo.KeyTap(key, args...)
	})
}

// TypeText types text as a sequence of characters.
func (r *RobotInjector) TypeText(ctx context.Context, text string) error {
	return r.do(ctx, "type", func() error {
		robotgo.TypeStr(text)
		return nil
	})
}

func (r *RobotInjector) do(ctx context.Context, op string, fn func() error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s panicked: %v", input.ErrInjection, op, p)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %s: %v", input.ErrInjection, op, err)
	}
	r.logger.Debug().Str("op", op).Msg("input injected")
	return nil
}

// LogInjector records input to the log without touching the desktop.
type LogInjector struct {
	logger zerolog.Logger
}

// NewLogInjector creates an injector for dry runs.
func NewLogInjector() *LogInjector {
	return &LogInjector{logger: logging.Component("dry-run")}
}

// Click logs a click.
func (l *LogInjector) Click(ctx context.Context, x, y int, button models.MouseButton, double bool) error {
	l.logger.Info().Int("x", x).Int("y", y).Str("button", string(button)).Bool("double", double).Msg("click")
	return ctx.Err()
}

// Move logs a pointer move.
func (l *LogInjector) Move(ctx context.Context, x, y int) error {
	l.logger.Info().Int("x", x).Int("y", y).Msg("move")
	return ctx.Err()
}

// Drag logs a drag.
func (l *LogInjector) Drag(ctx context.Context, fromX, fromY, toX, toY int, button models.MouseButton) error {
	l.logger.Info().
		Int("from_x", fromX).
		Int("from_y", fromY).
		Int("to_x", toX).
		Int("to_y", toY).
		Str("button", string(button)).
		Msg("drag")
	return ctx.Err()
}

// PressKeys logs a key combination.
func (l *LogInjector) PressKeys(ctx context.Context, keys []string) error {
	key, modifiers, err := input.SplitCombo(keys)
	if err != nil {
		return err
	}
	l.logger.Info().Str("key", key).Strs("modifiers", modifiers).Msg("key")
	return ctx.Err()
}

// TypeText logs typed text.
func (l *LogInjector) TypeText(ctx context.Context, text string) error {
	l.logger.Info().Int("chars", len(text)).Msg("type")
	return ctx.Err()
}

var (
	_ input.Injector = (*RobotInjector)(nil)
	_ input.Injector = (*LogInjector)(nil)
)
