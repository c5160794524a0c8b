package models

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is an 8-bit-per-channel color.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// Hex formats the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return c.Hex()
}

// Within reports whether every channel of c differs from target by at most
// tolerance.
func (c RGB) Within(target RGB, tolerance int) bool {
	return channelDiff(c.R, target.R) <= tolerance &&
		channelDiff(c.G, target.G) <= tolerance &&
		channelDiff(c.B, target.B) <= tolerance
}

func channelDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

// ParseRGB accepts "#rrggbb" or "r, g, b".
func ParseRGB(value string) (RGB, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return RGB{}, fmt.Errorf("color is required")
	}

	if strings.HasPrefix(value, "#") {
		if len(value) != 7 {
			return RGB{}, fmt.Errorf("invalid hex color %q", value)
		}
		n, err := strconv.ParseUint(value[1:], 16, 32)
		if err != nil {
			return RGB{}, fmt.Errorf("invalid hex color %q: %w", value, err)
		}
		return RGB{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, nil
	}

	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("invalid color %q: expected r, g, b", value)
	}
	var channels [3]uint8
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 255 {
			return RGB{}, fmt.Errorf("invalid color %q: channel %d out of range", value, i+1)
		}
		channels[i] = uint8(n)
	}
	return RGB{R: channels[0], G: channels[1], B: channels[2]}, nil
}
