package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ErrWorkflowNotFound is returned when no source holds a workflow name.
var ErrWorkflowNotFound = errors.New("workflow not found")

// SearchPaths returns workflow directories in precedence order. Extra
// directories rank below the project directory and above the user one.
func SearchPaths(projectDir string, extra ...string) []string {
	paths := make([]string, 0, 3+len(extra))
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".affentanz", "workflows"))
	}
	for _, dir := range extra {
		if dir != "" && !slices.Contains(paths, dir) {
			paths = append(paths, dir)
		}
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		user := filepath.Join(home, ".config", "affentanz", "workflows")
		if !slices.Contains(paths, user) {
			paths = append(paths, user)
		}
	}

	paths = append(paths, filepath.Join(string(filepath.Separator), "usr", "share", "affentanz", "workflows"))
	return paths
}

// LoadFromSearchPaths loads workflows from every search path followed by
// the builtin ones. When two sources hold a workflow of the same name the
// earlier one wins.
func LoadFromSearchPaths(projectDir string, extra ...string) ([]Entry, error) {
	resolved, err := loadFromDirs(SearchPaths(projectDir, extra...))
	if err != nil {
		return nil, err
	}

	builtins, err := LoadBuiltin()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(resolved))
	for _, entry := range resolved {
		seen[entry.Workflow.Name] = struct{}{}
	}
	for _, entry := range builtins {
		if _, exists := seen[entry.Workflow.Name]; exists {
			continue
		}
		resolved = append(resolved, entry)
	}
	return resolved, nil
}

func loadFromDirs(dirs []string) ([]Entry, error) {
	seen := make(map[string]struct{})
	resolved := make([]Entry, 0)

	for _, dir := range dirs {
		entries, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if _, exists := seen[entry.Workflow.Name]; exists {
				continue
			}
			seen[entry.Workflow.Name] = struct{}{}
			resolved = append(resolved, entry)
		}
	}
	return resolved, nil
}

// Find returns the entry holding the named workflow.
func Find(entries []Entry, name string) (Entry, error) {
	for _, entry := range entries {
		if entry.Workflow.Name == name {
			return entry, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
}
