package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/workflow"
)

var (
	newDir    string
	newFormat string
	newForce  bool

	convertForce bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().StringVar(&newDir, "dir", "", "directory for the new workflow (default workflows.dir)")
	newCmd.Flags().StringVar(&newFormat, "format", "json", "file format: json or yaml")
	newCmd.Flags().BoolVarP(&newForce, "force", "f", false, "overwrite an existing file")

	convertCmd.Flags().BoolVarP(&convertForce, "force", "f", false, "overwrite the output file without asking")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflows from the search paths",
	Long: `List the workflows found in .affentanz/workflows, the configured workflows
directory, ~/.config/affentanz/workflows and the builtin set. When several
sources hold a workflow with the same name the first one wins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := workflow.LoadFromSearchPaths(projectDir(), currentConfig().Workflows.Dir)
		if err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			items := make([]workflowSummary, 0, len(entries))
			for _, entry := range entries {
				items = append(items, summarize(entry))
			}
			return WriteOutput(cmd.OutOrStdout(), items)
		}

		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No workflows found")
			return nil
		}
		rows := make([][]string, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, []string{
				entry.Workflow.Name,
				strconv.Itoa(entry.Workflow.Len()),
				formatYesNo(entry.Workflow.Settings.Loop),
				entry.Path,
			})
		}
		return writeTable(cmd.OutOrStdout(), []string{"NAME", "ACTIONS", "LOOP", "SOURCE"}, rows)
	},
}

type workflowSummary struct {
	Name    string `json:"name"`
	Actions int    `json:"actions"`
	Loop    bool   `json:"loop"`
	Source  string `json:"source"`
}

func summarize(entry workflow.Entry) workflowSummary {
	return workflowSummary{
		Name:    entry.Workflow.Name,
		Actions: entry.Workflow.Len(),
		Loop:    entry.Workflow.Settings.Loop,
		Source:  entry.Path,
	}
}

var showCmd = &cobra.Command{
	Use:   "show <file|name>",
	Short: "Show a workflow's settings and actions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, source, err := resolveWorkflow(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if IsJSONOutput() || IsJSONLOutput() {
			data, err := workflow.Serialize(wf, workflow.FormatJSON)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}

		fmt.Fprintf(out, "%s\n", colorize(wf.Name, colorCyan))
		fmt.Fprintf(out, "  source:  %s\n", source)
		fmt.Fprintf(out, "  schema:  v%d\n", wf.SchemaVersion)
		if !wf.CreatedAt.IsZero() {
			fmt.Fprintf(out, "  created: %s\n", wf.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		loop := formatYesNo(wf.Settings.Loop)
		if wf.Settings.Loop && wf.Settings.LoopPauseMs > 0 {
			loop += fmt.Sprintf(" (pause %dms)", wf.Settings.LoopPauseMs)
		}
		fmt.Fprintf(out, "  loop:    %s\n\n", loop)

		if wf.Len() == 0 {
			fmt.Fprintln(out, "No actions")
			return nil
		}
		return writeTable(out, []string{"#", "TYPE", "ACTION"}, actionRows(wf))
	},
}

func actionRows(wf *models.Workflow) [][]string {
	rows := make([][]string, 0, wf.Len())
	for i, action := range wf.Actions {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(action.Type()),
			models.Describe(action),
		})
	}
	return rows
}

type validationResult struct {
	Path    string `json:"path"`
	Name    string `json:"name,omitempty"`
	Actions int    `json:"actions"`
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check workflow files against the document schema",
	Example: `  affentanz validate login.json
  affentanz validate .affentanz/workflows/*.yaml --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results := make([]validationResult, 0, len(args))
		invalid := 0
		for _, path := range args {
			result := validationResult{Path: path, Valid: true}
			wf, err := workflow.LoadFile(path)
			if err != nil {
				result.Valid = false
				result.Error = err.Error()
				invalid++
			} else {
				result.Name = wf.Name
				result.Actions = wf.Len()
			}
			results = append(results, result)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			if err := WriteOutput(out, results); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				if r.Valid {
					fmt.Fprintf(out, "%s %s (%s, %d actions)\n", colorize("OK ", colorGreen), r.Path, r.Name, r.Actions)
					continue
				}
				fmt.Fprintf(out, "%s %s\n    %s\n", colorize("ERR", colorRed), r.Path, strings.ReplaceAll(r.Error, "\n", "\n    "))
			}
		}

		if invalid > 0 {
			return fmt.Errorf("%d of %d workflows invalid", invalid, len(results))
		}
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert a workflow between JSON and YAML",
	Long: `Convert a workflow file. Formats are taken from the file extensions
(.json, .yaml, .yml). The output always carries the current schema version.`,
	Example: `  affentanz convert login.json login.yaml`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, outPath := args[0], args[1]
		if _, err := workflow.FormatFromPath(outPath); err != nil {
			return err
		}
		wf, err := workflow.LoadFile(in)
		if err != nil {
			return err
		}
		wf.SchemaVersion = models.CurrentSchemaVersion
		if err := checkOverwrite(outPath, convertForce); err != nil {
			return err
		}
		if err := workflow.SaveFile(outPath, wf); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
		return nil
	},
}

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create an empty workflow file",
	Example: `  affentanz new login
  affentanz new nightly --format yaml --dir .affentanz/workflows`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return errors.New("workflow name is required")
		}
		format, err := workflow.ParseFormat(newFormat)
		if err != nil {
			return err
		}
		dir := newDir
		if dir == "" {
			dir = currentConfig().Workflows.Dir
		}
		path := filepath.Join(dir, workflowFileName(name, format))

		if err := checkOverwrite(path, newForce); err != nil {
			return err
		}
		if err := workflow.SaveFile(path, models.NewWorkflow(name)); err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]string{"name": name, "path": path})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return nil
	},
}

// workflowFileName turns a workflow name into a file name.
func workflowFileName(name string, format workflow.Format) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(name))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "workflow"
	}
	return slug + "." + string(format)
}

// checkOverwrite refuses to replace an existing file unless forced or
// confirmed.
func checkOverwrite(path string, force bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if force || assumeYes {
		return nil
	}
	if IsNonInteractive() {
		return &PreflightError{
			Message:  fmt.Sprintf("%s already exists", path),
			NextStep: "rerun with --force to overwrite",
		}
	}
	if !confirm(fmt.Sprintf("%s exists. Overwrite?", path)) {
		return errors.New("aborted")
	}
	return nil
}
