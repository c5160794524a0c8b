package models

import (
	"strings"
	"time"
)

// ActionType is the stable discriminator of an action.
type ActionType string

const (
	ActionTypeMouseClick ActionType = "mouse_click"
	ActionTypeMouseMove  ActionType = "mouse_move"
	ActionTypeMouseDrag  ActionType = "mouse_drag"
	ActionTypeKeyPress   ActionType = "key_press"
	ActionTypeTypeText   ActionType = "type_text"
	ActionTypeWait       ActionType = "wait"
)

// Action is one primitive automation step. The set of implementations is
// closed; consumers switch over the concrete types.
type Action interface {
	Type() ActionType
	Validate() error
	isAction()
}

// MouseButton identifies a mouse button.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Valid reports whether b is a known button.
func (b MouseButton) Valid() bool {
	switch b {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return true
	default:
		return false
	}
}

// WaitKind selects what a Wait action waits for.
type WaitKind string

const (
	WaitKindDuration WaitKind = "duration"
	WaitKindColor    WaitKind = "color"
	WaitKindText     WaitKind = "text"
)

// MatchMode selects how recognized text is compared.
type MatchMode string

const (
	MatchExact    MatchMode = "exact"
	MatchContains MatchMode = "contains"
)

// Region is a rectangle in monitor-local pixel coordinates.
type Region struct {
	X       int
	Y       int
	Width   int
	Height  int
	Monitor int
}

// Validate checks the region geometry.
func (r Region) Validate() error {
	v := &ValidationErrors{}
	if r.X < 0 || r.Y < 0 {
		v.Addf("region", "origin (%d, %d) must not be negative", r.X, r.Y)
	}
	if r.Width <= 0 || r.Height <= 0 {
		v.Addf("region", "size %dx%d must be positive", r.Width, r.Height)
	}
	if r.Monitor < 0 {
		v.Addf("monitor_index", "must not be negative, got %d", r.Monitor)
	}
	return v.Err()
}

// MouseClick clicks at a monitor-local position.
type MouseClick struct {
	X       int
	Y       int
	Button  MouseButton
	Monitor int
	Double  bool
}

// NewMouseClick builds a validated single click.
func NewMouseClick(x, y int, button MouseButton, monitor int) (MouseClick, error) {
	a := MouseClick{X: x, Y: y, Button: button, Monitor: monitor}
	if err := a.Validate(); err != nil {
		return MouseClick{}, err
	}
	return a, nil
}

func (MouseClick) Type() ActionType { return ActionTypeMouseClick }
func (MouseClick) isAction()        {}

// Validate checks coordinates and button.
func (a MouseClick) Validate() error {
	v := &ValidationErrors{}
	validatePoint(v, "", a.X, a.Y)
	validateMonitor(v, a.Monitor)
	if !a.Button.Valid() {
		v.Addf("button", "unknown button %q", a.Button)
	}
	return v.Err()
}

// MouseMove moves the pointer to a monitor-local position.
type MouseMove struct {
	X       int
	Y       int
	Monitor int
}

// NewMouseMove builds a validated pointer move.
func NewMouseMove(x, y, monitor int) (MouseMove, error) {
	a := MouseMove{X: x, Y: y, Monitor: monitor}
	if err := a.Validate(); err != nil {
		return MouseMove{}, err
	}
	return a, nil
}

func (MouseMove) Type() ActionType { return ActionTypeMouseMove }
func (MouseMove) isAction()        {}

// Validate checks coordinates.
func (a MouseMove) Validate() error {
	v := &ValidationErrors{}
	validatePoint(v, "", a.X, a.Y)
	validateMonitor(v, a.Monitor)
	return v.Err()
}

// MouseDrag presses a button at one point and releases it at another, both
// on the same monitor.
type MouseDrag struct {
	FromX   int
	FromY   int
	ToX     int
	ToY     int
	Button  MouseButton
	Monitor int
}

// NewMouseDrag builds a validated drag.
func NewMouseDrag(fromX, fromY, toX, toY int, button MouseButton, monitor int) (MouseDrag, error) {
	a := MouseDrag{FromX: fromX, FromY: fromY, ToX: toX, ToY: toY, Button: button, Monitor: monitor}
	if err := a.Validate(); err != nil {
		return MouseDrag{}, err
	}
	return a, nil
}

func (MouseDrag) Type() ActionType { return ActionTypeMouseDrag }
func (MouseDrag) isAction()        {}

// Validate checks both end points and the button.
func (a MouseDrag) Validate() error {
	v := &ValidationErrors{}
	validatePoint(v, "from", a.FromX, a.FromY)
	validatePoint(v, "to", a.ToX, a.ToY)
	validateMonitor(v, a.Monitor)
	if !a.Button.Valid() {
		v.Addf("button", "unknown button %q", a.Button)
	}
	return v.Err()
}

// KeyPress taps a key combination. All keys but the last are held as
// modifiers while the last one is tapped.
type KeyPress struct {
	Keys []string
}

// NewKeyPress builds a validated key press.
func NewKeyPress(keys ...string) (KeyPress, error) {
	a := KeyPress{Keys: append([]string(nil), keys...)}
	if err := a.Validate(); err != nil {
		return KeyPress{}, err
	}
	return a, nil
}

func (KeyPress) Type() ActionType { return ActionTypeKeyPress }
func (KeyPress) isAction()        {}

// Validate requires a non-empty sequence of non-empty key symbols.
func (a KeyPress) Validate() error {
	v := &ValidationErrors{}
	if len(a.Keys) == 0 {
		v.AddMessage("keys", "at least one key is required")
	}
	for i, key := range a.Keys {
		if strings.TrimSpace(key) == "" {
			v.Addf("keys", "key %d is empty", i)
		}
	}
	return v.Err()
}

// TypeText types a literal string.
type TypeText struct {
	Text string
}

// NewTypeText builds a validated text input action.
func NewTypeText(text string) (TypeText, error) {
	a := TypeText{Text: text}
	if err := a.Validate(); err != nil {
		return TypeText{}, err
	}
	return a, nil
}

func (TypeText) Type() ActionType { return ActionTypeTypeText }
func (TypeText) isAction()        {}

// Validate requires some text.
func (a TypeText) Validate() error {
	v := &ValidationErrors{}
	if a.Text == "" {
		v.AddMessage("text", "text is required")
	}
	return v.Err()
}

// ColorCondition waits until the average color of a region is within
// Tolerance of Target on every channel.
type ColorCondition struct {
	Region         Region
	Target         RGB
	Tolerance      int
	TimeoutMs      int
	PollIntervalMs int
}

// TextCondition waits until OCR output of a region matches Expected.
// Comparison is case-sensitive without whitespace normalization.
type TextCondition struct {
	Region         Region
	Expected       string
	Match          MatchMode
	TimeoutMs      int
	PollIntervalMs int
}

// Wait pauses playback for a fixed time or until a screen condition holds.
// Exactly one payload matches Kind.
type Wait struct {
	Kind       WaitKind
	DurationMs int
	Color      *ColorCondition
	Text       *TextCondition
}

// NewDurationWait builds a fixed-time wait.
func NewDurationWait(ms int) (Wait, error) {
	a := Wait{Kind: WaitKindDuration, DurationMs: ms}
	if err := a.Validate(); err != nil {
		return Wait{}, err
	}
	return a, nil
}

// NewColorWait builds a color condition wait.
func NewColorWait(cond ColorCondition) (Wait, error) {
	a := Wait{Kind: WaitKindColor, Color: &cond}
	if err := a.Validate(); err != nil {
		return Wait{}, err
	}
	return a, nil
}

// NewTextWait builds a text condition wait.
func NewTextWait(cond TextCondition) (Wait, error) {
	a := Wait{Kind: WaitKindText, Text: &cond}
	if err := a.Validate(); err != nil {
		return Wait{}, err
	}
	return a, nil
}

func (Wait) Type() ActionType { return ActionTypeWait }
func (Wait) isAction()        {}

// IsCondition reports whether the wait polls the screen.
func (a Wait) IsCondition() bool {
	return a.Kind == WaitKindColor || a.Kind == WaitKindText
}

// Timeout returns the condition timeout, or the fixed duration.
func (a Wait) Timeout() time.Duration {
	switch a.Kind {
	case WaitKindColor:
		if a.Color != nil {
			return time.Duration(a.Color.TimeoutMs) * time.Millisecond
		}
	case WaitKindText:
		if a.Text != nil {
			return time.Duration(a.Text.TimeoutMs) * time.Millisecond
		}
	}
	return time.Duration(a.DurationMs) * time.Millisecond
}

// PollInterval returns the condition poll cadence; zero for duration waits.
func (a Wait) PollInterval() time.Duration {
	switch a.Kind {
	case WaitKindColor:
		if a.Color != nil {
			return time.Duration(a.Color.PollIntervalMs) * time.Millisecond
		}
	case WaitKindText:
		if a.Text != nil {
			return time.Duration(a.Text.PollIntervalMs) * time.Millisecond
		}
	}
	return 0
}

// Region returns the polled region of a condition wait.
func (a Wait) Region() (Region, bool) {
	switch {
	case a.Kind == WaitKindColor && a.Color != nil:
		return a.Color.Region, true
	case a.Kind == WaitKindText && a.Text != nil:
		return a.Text.Region, true
	}
	return Region{}, false
}

// Validate checks the payload for the wait kind.
func (a Wait) Validate() error {
	v := &ValidationErrors{}
	switch a.Kind {
	case WaitKindDuration:
		if a.DurationMs < 0 {
			v.Addf("milliseconds_to_wait", "must be >= 0, got %d", a.DurationMs)
		}
	case WaitKindColor:
		if a.Color == nil {
			v.AddMessage("color", "color condition is required")
			break
		}
		v.Merge("", a.Color.Region.Validate())
		if a.Color.Tolerance < 0 || a.Color.Tolerance > 255 {
			v.Addf("tolerance", "must be within 0..255, got %d", a.Color.Tolerance)
		}
		validatePolling(v, a.Color.TimeoutMs, a.Color.PollIntervalMs)
	case WaitKindText:
		if a.Text == nil {
			v.AddMessage("text", "text condition is required")
			break
		}
		v.Merge("", a.Text.Region.Validate())
		if a.Text.Expected == "" {
			v.AddMessage("expected_text", "expected text is required")
		}
		if a.Text.Match != MatchExact && a.Text.Match != MatchContains {
			v.Addf("match_mode", "unknown match mode %q", a.Text.Match)
		}
		validatePolling(v, a.Text.TimeoutMs, a.Text.PollIntervalMs)
	default:
		v.Addf("kind", "unknown wait kind %q", a.Kind)
	}
	return v.Err()
}

func validatePolling(v *ValidationErrors, timeoutMs, pollMs int) {
	if pollMs <= 0 {
		v.Addf("poll_interval_ms", "must be > 0, got %d", pollMs)
	}
	if timeoutMs < pollMs {
		v.Addf("timeout_ms", "must be >= poll_interval_ms (%d), got %d", pollMs, timeoutMs)
	}
}

func validatePoint(v *ValidationErrors, prefix string, x, y int) {
	field := "position"
	if prefix != "" {
		field = prefix
	}
	if x < 0 || y < 0 {
		v.Addf(field, "coordinates (%d, %d) must not be negative", x, y)
	}
}

func validateMonitor(v *ValidationErrors, monitor int) {
	if monitor < 0 {
		v.Addf("monitor_index", "must not be negative, got %d", monitor)
	}
}

// MonitorOf returns the monitor an action touches, if any.
func MonitorOf(a Action) (int, bool) {
	switch act := a.(type) {
	case MouseClick:
		return act.Monitor, true
	case MouseMove:
		return act.Monitor, true
	case MouseDrag:
		return act.Monitor, true
	case Wait:
		if r, ok := act.Region(); ok {
			return r.Monitor, true
		}
	}
	return 0, false
}

// CloneAction returns a deep copy of a.
func CloneAction(a Action) Action {
	switch act := a.(type) {
	case KeyPress:
		return KeyPress{Keys: append([]string(nil), act.Keys...)}
	case Wait:
		out := act
		if act.Color != nil {
			c := *act.Color
			out.Color = &c
		}
		if act.Text != nil {
			t := *act.Text
			out.Text = &t
		}
		return out
	default:
		return a
	}
}
