package workflow

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed builtin/*
var builtinFS embed.FS

// BuiltinSource is the Entry path of bundled workflows.
const BuiltinSource = "builtin"

// LoadBuiltin returns the example workflows bundled with the binary.
func LoadBuiltin() ([]Entry, error) {
	files, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtin workflows: %w", err)
	}

	entries := make([]Entry, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		format, err := FormatFromPath(file.Name())
		if err != nil {
			continue
		}
		data, err := builtinFS.ReadFile("builtin/" + file.Name())
		if err != nil {
			return nil, fmt.Errorf("read builtin workflow %s: %w", file.Name(), err)
		}
		wf, err := Deserialize(data, format)
		if err != nil {
			return nil, fmt.Errorf("parse builtin workflow %s: %w", file.Name(), err)
		}
		entries = append(entries, Entry{Path: BuiltinSource, Workflow: wf})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Workflow.Name < entries[j].Workflow.Name
	})
	return entries, nil
}
