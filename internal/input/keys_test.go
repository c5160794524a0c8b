package input

import (
	"errors"
	"testing"
)

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Ctrl":   "control",
		" cmd ":  "command",
		"Option": "alt",
		"Esc":    "escape",
		"Return": "enter",
		" ":      "space",
		"F5":     "f5",
		"a":      "a",
	}
	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitCombo(t *testing.T) {
	key, mods, err := SplitCombo([]string{"ctrl", "shift", "S"})
	if err != nil {
		t.Fatalf("SplitCombo: %v", err)
	}
	if key != "s" {
		t.Fatalf("expected key s, got %q", key)
	}
	if len(mods) != 2 || mods[0] != "control" || mods[1] != "shift" {
		t.Fatalf("unexpected modifiers %v", mods)
	}

	key, mods, err = SplitCombo([]string{"enter"})
	if err != nil || key != "enter" || len(mods) != 0 {
		t.Fatalf("unexpected single key result %q %v %v", key, mods, err)
	}

	if _, _, err := SplitCombo(nil); !errors.Is(err, ErrInjection) {
		t.Fatalf("expected ErrInjection, got %v", err)
	}
}
