package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pepperonas/Affentanz/internal/models"
)

// Entry is a workflow loaded from disk.
type Entry struct {
	Path     string
	Workflow *models.Workflow
}

// LoadFile reads a single workflow, picking the format by extension.
func LoadFile(path string) (*models.Workflow, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("workflow path is required")
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", path, err)
	}

	wf, err := Deserialize(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", path, err)
	}
	return wf, nil
}

// SaveFile writes a workflow, picking the format by extension. The file is
// replaced atomically.
func SaveFile(path string, wf *models.Workflow) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Serialize(wf, format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create workflow dir %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".workflow-*")
	if err != nil {
		return fmt.Errorf("write workflow %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write workflow %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write workflow %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write workflow %s: %w", path, err)
	}
	return nil
}

// LoadDir loads all workflow files from a directory, sorted by name. A
// missing directory yields no entries.
func LoadDir(dir string) ([]Entry, error) {
	if strings.TrimSpace(dir) == "" {
		return []Entry{}, nil
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read workflows dir %s: %w", dir, err)
	}

	entries := make([]Entry, 0)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		path := filepath.Join(dir, file.Name())
		if _, err := FormatFromPath(path); err != nil {
			continue
		}
		wf, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Path: path, Workflow: wf})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Workflow.Name == entries[j].Workflow.Name {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].Workflow.Name < entries[j].Workflow.Name
	})
	return entries, nil
}
