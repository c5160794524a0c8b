package models

import (
	"fmt"
	"strings"
)

// Describe renders a one-line human description of an action.
func Describe(a Action) string {
	switch act := a.(type) {
	case MouseClick:
		label := "click"
		if act.Double {
			label = "double click"
		}
		return fmt.Sprintf("%s %s at (%d, %d) on monitor %d", act.Button, label, act.X, act.Y, act.Monitor)
	case MouseMove:
		return fmt.Sprintf("move to (%d, %d) on monitor %d", act.X, act.Y, act.Monitor)
	case MouseDrag:
		return fmt.Sprintf("%s drag (%d, %d) -> (%d, %d) on monitor %d",
			act.Button, act.FromX, act.FromY, act.ToX, act.ToY, act.Monitor)
	case KeyPress:
		return "press " + strings.Join(act.Keys, "+")
	case TypeText:
		return fmt.Sprintf("type %q", act.Text)
	case Wait:
		return describeWait(act)
	case nil:
		return "<nil>"
	default:
		return string(a.Type())
	}
}

func describeWait(w Wait) string {
	switch w.Kind {
	case WaitKindDuration:
		return fmt.Sprintf("wait %dms", w.DurationMs)
	case WaitKindColor:
		if w.Color == nil {
			return "wait for color"
		}
		r := w.Color.Region
		return fmt.Sprintf("wait for %s (±%d) in %dx%d at (%d, %d) on monitor %d, timeout %dms",
			w.Color.Target.Hex(), w.Color.Tolerance, r.Width, r.Height, r.X, r.Y, r.Monitor, w.Color.TimeoutMs)
	case WaitKindText:
		if w.Text == nil {
			return "wait for text"
		}
		r := w.Text.Region
		return fmt.Sprintf("wait for text %q (%s) in %dx%d at (%d, %d) on monitor %d, timeout %dms",
			w.Text.Expected, w.Text.Match, r.Width, r.Height, r.X, r.Y, r.Monitor, w.Text.TimeoutMs)
	default:
		return "wait " + string(w.Kind)
	}
}
