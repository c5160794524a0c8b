// Package input synthesizes mouse and keyboard events.
package input

import (
	"context"
	"errors"

	"github.com/pepperonas/Affentanz/internal/models"
)

// ErrInjection is returned when the operating system rejects a synthesized event.
var ErrInjection = errors.New("input injection failed")

// Injector delivers synthesized input at global desktop coordinates.
type Injector interface {
	Click(ctx context.Context, x, y int, button models.MouseButton, double bool) error
	Move(ctx context.Context, x, y int) error
	Drag(ctx context.Context, fromX, fromY, toX, toY int, button models.MouseButton) error
	PressKeys(ctx context.Context, keys []string) error
	TypeText(ctx context.Context, text string) error
}
