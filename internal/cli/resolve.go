package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/workflow"
)

// resolveWorkflow loads ref as a file path when one exists, otherwise looks
// it up by name in the workflow search paths. It returns the workflow and
// the source recorded with its runs.
func resolveWorkflow(ref string) (*models.Workflow, string, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		wf, err := workflow.LoadFile(ref)
		if err != nil {
			return nil, "", err
		}
		abs, err := filepath.Abs(ref)
		if err != nil {
			abs = ref
		}
		return wf, abs, nil
	}

	if _, err := workflow.FormatFromPath(ref); err == nil {
		return nil, "", &PreflightError{
			Message:  fmt.Sprintf("workflow file not found: %s", ref),
			Hint:     "check the path or pass a workflow name instead",
			NextStep: "affentanz list",
		}
	}

	entries, err := workflow.LoadFromSearchPaths(projectDir(), currentConfig().Workflows.Dir)
	if err != nil {
		return nil, "", err
	}
	entry, err := workflow.Find(entries, ref)
	if err != nil {
		if errors.Is(err, workflow.ErrWorkflowNotFound) {
			return nil, "", &PreflightError{
				Message:  fmt.Sprintf("no workflow named %q", ref),
				Hint:     "workflows are searched in .affentanz/workflows, the configured workflows dir and the builtin set",
				NextStep: "affentanz list",
			}
		}
		return nil, "", err
	}
	return entry.Workflow, entry.Path, nil
}
