package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegion() Region {
	return Region{X: 10, Y: 20, Width: 30, Height: 40, Monitor: 1}
}

func TestNewColorWaitValidation(t *testing.T) {
	tests := []struct {
		name    string
		cond    ColorCondition
		wantErr bool
	}{
		{"valid", ColorCondition{Region: validRegion(), Tolerance: 5, TimeoutMs: 100, PollIntervalMs: 20}, false},
		{"timeout equals poll", ColorCondition{Region: validRegion(), TimeoutMs: 20, PollIntervalMs: 20}, false},
		{"timeout below poll", ColorCondition{Region: validRegion(), TimeoutMs: 10, PollIntervalMs: 20}, true},
		{"zero poll", ColorCondition{Region: validRegion(), TimeoutMs: 100, PollIntervalMs: 0}, true},
		{"negative poll", ColorCondition{Region: validRegion(), TimeoutMs: 100, PollIntervalMs: -5}, true},
		{"zero width", ColorCondition{Region: Region{Width: 0, Height: 4}, TimeoutMs: 100, PollIntervalMs: 10}, true},
		{"zero height", ColorCondition{Region: Region{Width: 4, Height: 0}, TimeoutMs: 100, PollIntervalMs: 10}, true},
		{"tolerance too large", ColorCondition{Region: validRegion(), Tolerance: 256, TimeoutMs: 100, PollIntervalMs: 10}, true},
		{"negative tolerance", ColorCondition{Region: validRegion(), Tolerance: -1, TimeoutMs: 100, PollIntervalMs: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewColorWait(tt.cond)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidParameter), "expected ErrInvalidParameter, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, WaitKindColor, w.Kind)
			assert.True(t, w.IsCondition())
		})
	}
}

func TestNewTextWaitValidation(t *testing.T) {
	base := TextCondition{Region: validRegion(), Expected: "Ready", Match: MatchContains, TimeoutMs: 500, PollIntervalMs: 50}

	_, err := NewTextWait(base)
	require.NoError(t, err)

	bad := base
	bad.Expected = ""
	_, err = NewTextWait(bad)
	require.ErrorIs(t, err, ErrInvalidParameter)

	bad = base
	bad.Match = "fuzzy"
	_, err = NewTextWait(bad)
	require.ErrorIs(t, err, ErrInvalidParameter)

	bad = base
	bad.TimeoutMs = 10
	_, err = NewTextWait(bad)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNewDurationWait(t *testing.T) {
	w, err := NewDurationWait(0)
	require.NoError(t, err)
	assert.False(t, w.IsCondition())
	assert.Zero(t, w.PollInterval())

	_, err = NewDurationWait(-1)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestMouseAndKeyValidation(t *testing.T) {
	_, err := NewMouseClick(5, 5, ButtonLeft, 0)
	require.NoError(t, err)

	_, err = NewMouseClick(-1, 5, ButtonLeft, 0)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewMouseClick(1, 5, "thumb", 0)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewMouseClick(1, 5, ButtonRight, -2)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewMouseDrag(0, 0, 10, -10, ButtonLeft, 0)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewKeyPress()
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewKeyPress("ctrl", " ")
	require.ErrorIs(t, err, ErrInvalidParameter)

	kp, err := NewKeyPress("ctrl", "shift", "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"ctrl", "shift", "s"}, kp.Keys)

	_, err = NewTypeText("")
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestValidationErrorsCarryFields(t *testing.T) {
	_, err := NewColorWait(ColorCondition{Region: Region{Width: 0, Height: 1}, TimeoutMs: 1, PollIntervalMs: 0})
	require.Error(t, err)

	var ve *ValidationErrors
	require.True(t, errors.As(err, &ve))

	fields := make(map[string]bool)
	for _, fe := range ve.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["region"])
	assert.True(t, fields["poll_interval_ms"])
}

func TestWaitTimingAccessors(t *testing.T) {
	w, err := NewTextWait(TextCondition{Region: validRegion(), Expected: "x", Match: MatchExact, TimeoutMs: 250, PollIntervalMs: 25})
	require.NoError(t, err)
	assert.Equal(t, 250_000_000, int(w.Timeout()))
	assert.Equal(t, 25_000_000, int(w.PollInterval()))

	region, ok := w.Region()
	require.True(t, ok)
	assert.Equal(t, validRegion(), region)

	monitor, ok := MonitorOf(w)
	require.True(t, ok)
	assert.Equal(t, 1, monitor)

	_, ok = MonitorOf(KeyPress{Keys: []string{"a"}})
	assert.False(t, ok)
}

func TestCloneActionIsDeep(t *testing.T) {
	w, err := NewColorWait(ColorCondition{Region: validRegion(), TimeoutMs: 10, PollIntervalMs: 10})
	require.NoError(t, err)

	clone := CloneAction(w).(Wait)
	clone.Color.Tolerance = 99
	assert.Equal(t, 0, w.Color.Tolerance)

	kp := KeyPress{Keys: []string{"a", "b"}}
	kpClone := CloneAction(kp).(KeyPress)
	kpClone.Keys[0] = "z"
	assert.Equal(t, "a", kp.Keys[0])
}

func TestParseRGB(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{"#ff8000", RGB{R: 255, G: 128, B: 0}, false},
		{"#FF8000", RGB{R: 255, G: 128, B: 0}, false},
		{"12, 34, 56", RGB{R: 12, G: 34, B: 56}, false},
		{"255,0,0", RGB{R: 255}, false},
		{"#fff", RGB{}, true},
		{"#gg0000", RGB{}, true},
		{"1,2", RGB{}, true},
		{"1,2,300", RGB{}, true},
		{"", RGB{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRGB(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, mustParse(t, got.Hex()))
		})
	}
}

func mustParse(t *testing.T, s string) RGB {
	t.Helper()
	c, err := ParseRGB(s)
	require.NoError(t, err)
	return c
}

func TestRGBWithin(t *testing.T) {
	target := RGB{R: 100, G: 100, B: 100}
	assert.True(t, target.Within(target, 0))
	assert.True(t, RGB{R: 110, G: 90, B: 100}.Within(target, 10))
	assert.False(t, RGB{R: 111, G: 100, B: 100}.Within(target, 10))
	assert.False(t, RGB{R: 100, G: 100, B: 89}.Within(target, 10))
}
