package workflow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pepperonas/Affentanz/internal/models"
)

// Defaults applied to optional condition fields that a document omits.
const (
	DefaultTolerance   = 10
	DefaultTimeoutMs   = 10000
	DefaultColorPollMs = 100
	DefaultTextPollMs  = 500
	DefaultButton      = models.ButtonLeft
	DefaultMatchMode   = models.MatchContains

	createdAtLayout = time.RFC3339Nano
)

type document struct {
	SchemaVersion int               `json:"schemaVersion"`
	Name          string            `json:"name"`
	CreatedAt     string            `json:"createdAt,omitempty"`
	Settings      *settingsDocument `json:"settings,omitempty"`
	Actions       []json.RawMessage `json:"actions"`
}

type settingsDocument struct {
	Loop        bool `json:"loop"`
	LoopPauseMs int  `json:"loopPauseMs"`
}

type actionHeader struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
}

type regionDocument struct {
	X            int `json:"x"`
	Y            int `json:"y"`
	Width        int `json:"width"`
	Height       int `json:"height"`
	MonitorIndex int `json:"monitorIndex"`
}

type mouseClickDocument struct {
	Type         string `json:"type"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	Button       string `json:"button"`
	MonitorIndex int    `json:"monitorIndex"`
	Double       bool   `json:"double"`
}

type mouseMoveDocument struct {
	Type         string `json:"type"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	MonitorIndex int    `json:"monitorIndex"`
}

type mouseDragDocument struct {
	Type         string `json:"type"`
	FromX        int    `json:"fromX"`
	FromY        int    `json:"fromY"`
	ToX          int    `json:"toX"`
	ToY          int    `json:"toY"`
	Button       string `json:"button"`
	MonitorIndex int    `json:"monitorIndex"`
}

type keyPressDocument struct {
	Type string   `json:"type"`
	Keys []string `json:"keys"`
}

type typeTextDocument struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waitDocument struct {
	Type               string          `json:"type"`
	Kind               string          `json:"kind"`
	MillisecondsToWait *int            `json:"millisecondsToWait,omitempty"`
	Region             *regionDocument `json:"region,omitempty"`
	TargetColor        string          `json:"targetColor,omitempty"`
	Tolerance          *int            `json:"tolerance,omitempty"`
	ExpectedText       string          `json:"expectedText,omitempty"`
	MatchMode          string          `json:"matchMode,omitempty"`
	TimeoutMs          *int            `json:"timeoutMs,omitempty"`
	PollIntervalMs     *int            `json:"pollIntervalMs,omitempty"`
}

func encodeRegion(r models.Region) *regionDocument {
	return &regionDocument{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, MonitorIndex: r.Monitor}
}

func (r *regionDocument) model() models.Region {
	return models.Region{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Monitor: r.MonitorIndex}
}

func intPtr(v int) *int { return &v }

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func encodeAction(a models.Action) (any, error) {
	switch act := a.(type) {
	case models.MouseClick:
		return mouseClickDocument{
			Type:         string(models.ActionTypeMouseClick),
			X:            act.X,
			Y:            act.Y,
			Button:       string(act.Button),
			MonitorIndex: act.Monitor,
			Double:       act.Double,
		}, nil
	case models.MouseMove:
		return mouseMoveDocument{
			Type:         string(models.ActionTypeMouseMove),
			X:            act.X,
			Y:            act.Y,
			MonitorIndex: act.Monitor,
		}, nil
	case models.MouseDrag:
		return mouseDragDocument{
			Type:         string(models.ActionTypeMouseDrag),
			FromX:        act.FromX,
			FromY:        act.FromY,
			ToX:          act.ToX,
			ToY:          act.ToY,
			Button:       string(act.Button),
			MonitorIndex: act.Monitor,
		}, nil
	case models.KeyPress:
		keys := act.Keys
		if keys == nil {
			keys = []string{}
		}
		return keyPressDocument{Type: string(models.ActionTypeKeyPress), Keys: keys}, nil
	case models.TypeText:
		return typeTextDocument{Type: string(models.ActionTypeTypeText), Text: act.Text}, nil
	case models.Wait:
		return encodeWait(act)
	case nil:
		return nil, fmt.Errorf("action is nil")
	default:
		return nil, fmt.Errorf("unsupported action type %q", a.Type())
	}
}

func encodeWait(w models.Wait) (waitDocument, error) {
	doc := waitDocument{Type: string(models.ActionTypeWait), Kind: string(w.Kind)}
	switch w.Kind {
	case models.WaitKindDuration:
		doc.MillisecondsToWait = intPtr(w.DurationMs)
	case models.WaitKindColor:
		if w.Color == nil {
			return doc, fmt.Errorf("color wait without condition")
		}
		doc.Region = encodeRegion(w.Color.Region)
		doc.TargetColor = w.Color.Target.Hex()
		doc.Tolerance = intPtr(w.Color.Tolerance)
		doc.TimeoutMs = intPtr(w.Color.TimeoutMs)
		doc.PollIntervalMs = intPtr(w.Color.PollIntervalMs)
	case models.WaitKindText:
		if w.Text == nil {
			return doc, fmt.Errorf("text wait without condition")
		}
		doc.Region = encodeRegion(w.Text.Region)
		doc.ExpectedText = w.Text.Expected
		doc.MatchMode = string(w.Text.Match)
		doc.TimeoutMs = intPtr(w.Text.TimeoutMs)
		doc.PollIntervalMs = intPtr(w.Text.PollIntervalMs)
	default:
		return doc, fmt.Errorf("unsupported wait kind %q", w.Kind)
	}
	return doc, nil
}

// decodeAction maps one raw action onto the model. Errors returned here are
// document shape errors; model validation runs afterwards.
func decodeAction(raw json.RawMessage) (models.Action, error) {
	var head actionHeader
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	switch models.ActionType(head.Type) {
	case models.ActionTypeMouseClick:
		var doc mouseClickDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return models.MouseClick{
			X:       doc.X,
			Y:       doc.Y,
			Button:  buttonOrDefault(doc.Button),
			Monitor: doc.MonitorIndex,
			Double:  doc.Double,
		}, nil

	case models.ActionTypeMouseMove:
		var doc mouseMoveDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return models.MouseMove{X: doc.X, Y: doc.Y, Monitor: doc.MonitorIndex}, nil

	case models.ActionTypeMouseDrag:
		var doc mouseDragDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return models.MouseDrag{
			FromX:   doc.FromX,
			FromY:   doc.FromY,
			ToX:     doc.ToX,
			ToY:     doc.ToY,
			Button:  buttonOrDefault(doc.Button),
			Monitor: doc.MonitorIndex,
		}, nil

	case models.ActionTypeKeyPress:
		var doc keyPressDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return models.KeyPress{Keys: doc.Keys}, nil

	case models.ActionTypeTypeText:
		var doc typeTextDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return models.TypeText{Text: doc.Text}, nil

	case models.ActionTypeWait:
		var doc waitDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return decodeWait(doc)

	default:
		return nil, fmt.Errorf("unknown action type %q", head.Type)
	}
}

func decodeWait(doc waitDocument) (models.Wait, error) {
	switch models.WaitKind(doc.Kind) {
	case models.WaitKindDuration:
		if doc.MillisecondsToWait == nil {
			return models.Wait{}, fmt.Errorf("duration wait requires millisecondsToWait")
		}
		return models.Wait{Kind: models.WaitKindDuration, DurationMs: *doc.MillisecondsToWait}, nil

	case models.WaitKindColor:
		if doc.Region == nil {
			return models.Wait{}, fmt.Errorf("color wait requires region")
		}
		target, err := models.ParseRGB(doc.TargetColor)
		if err != nil {
			return models.Wait{}, fmt.Errorf("targetColor: %w", err)
		}
		return models.Wait{
			Kind: models.WaitKindColor,
			Color: &models.ColorCondition{
				Region:         doc.Region.model(),
				Target:         target,
				Tolerance:      intOr(doc.Tolerance, DefaultTolerance),
				TimeoutMs:      intOr(doc.TimeoutMs, DefaultTimeoutMs),
				PollIntervalMs: intOr(doc.PollIntervalMs, DefaultColorPollMs),
			},
		}, nil

	case models.WaitKindText:
		if doc.Region == nil {
			return models.Wait{}, fmt.Errorf("text wait requires region")
		}
		match := models.MatchMode(doc.MatchMode)
		if match == "" {
			match = DefaultMatchMode
		}
		return models.Wait{
			Kind: models.WaitKindText,
			Text: &models.TextCondition{
				Region:         doc.Region.model(),
				Expected:       doc.ExpectedText,
				Match:          match,
				TimeoutMs:      intOr(doc.TimeoutMs, DefaultTimeoutMs),
				PollIntervalMs: intOr(doc.PollIntervalMs, DefaultTextPollMs),
			},
		}, nil

	default:
		return models.Wait{}, fmt.Errorf("unknown wait kind %q", doc.Kind)
	}
}

func buttonOrDefault(s string) models.MouseButton {
	if s == "" {
		return DefaultButton
	}
	return models.MouseButton(s)
}
