package input

import (
	"fmt"
	"strings"
)

var keyAliases = map[string]string{
	"ctrl":    "control",
	"control": "control",
	"strg":    "control",
	"cmd":     "command",
	"command": "command",
	"super":   "command",
	"win":     "command",
	"meta":    "command",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
	"esc":     "escape",
	"escape":  "escape",
	"return":  "enter",
	"enter":   "enter",
	"del":     "delete",
	"pgup":    "pageup",
	"pgdn":    "pagedown",
}

// NormalizeKey maps a key symbol onto the name used by the injector.
func NormalizeKey(key string) string {
	if key == " " {
		return "space"
	}
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}

// SplitCombo separates a key combination into the tapped key and the
// modifiers held while it is tapped.
func SplitCombo(keys []string) (string, []string, error) {
	if len(keys) == 0 {
		return "", nil, fmt.Errorf("%w: empty key combination", ErrInjection)
	}
	modifiers := make([]string, 0, len(keys)-1)
	for _, k := range keys[:len(keys)-1] {
		modifiers = append(modifiers, NormalizeKey(k))
	}
	return NormalizeKey(keys[len(keys)-1]), modifiers, nil
}
