package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pepperonas/Affentanz/internal/adapters"
	"github.com/pepperonas/Affentanz/internal/config"
)

var (
	initForce       bool
	initSkipDisplay bool

	configDirFunc = defaultConfigDir
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	initCmd.Flags().BoolVar(&initSkipDisplay, "skip-display-check", false, "do not probe the attached monitors")
}

type initResult struct {
	name    string
	status  string // done, skipped, failed
	message string
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file, workflows directory and database",
	Long: `Set up Affentanz for the current user: write a commented config.yaml,
create the workflows directory, create the run history database and check
that monitors can be detected.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		results := []initResult{
			createConfigFile(),
			createWorkflowsDir(),
			initDatabase(cmd),
		}
		if !initSkipDisplay {
			results = append(results, checkDisplay())
		}

		out := cmd.OutOrStdout()
		failed := 0
		if IsJSONOutput() || IsJSONLOutput() {
			items := make([]map[string]string, 0, len(results))
			for _, r := range results {
				items = append(items, map[string]string{"step": r.name, "status": r.status, "message": r.message})
				if r.status == "failed" {
					failed++
				}
			}
			if err := WriteOutput(out, items); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				var mark string
				switch r.status {
				case "done":
					mark = colorize("✓", colorGreen)
				case "skipped":
					mark = colorize("-", colorYellow)
				default:
					mark = colorize("✗", colorRed)
					failed++
				}
				fmt.Fprintf(out, "%s %s: %s\n", mark, r.name, r.message)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d init steps failed", failed)
		}
		return nil
	},
}

func defaultConfigDir() string {
	return config.DefaultConfigDir()
}

func createConfigFile() initResult {
	result := initResult{name: "Config file"}
	dir := configDirFunc()
	path := filepath.Join(dir, "config.yaml")

	if _, err := os.Stat(path); err == nil && !initForce {
		result.status = "skipped"
		result.message = fmt.Sprintf("%s already exists (use --force to overwrite)", path)
		return result
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.status = "failed"
		result.message = err.Error()
		return result
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		result.status = "failed"
		result.message = err.Error()
		return result
	}
	result.status = "done"
	result.message = path
	return result
}

func createWorkflowsDir() initResult {
	result := initResult{name: "Workflows directory"}
	dir := filepath.Join(configDirFunc(), "workflows")

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		result.status = "skipped"
		result.message = dir + " already exists"
		return result
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.status = "failed"
		result.message = err.Error()
		return result
	}
	result.status = "done"
	result.message = dir
	return result
}

func initDatabase(cmd *cobra.Command) initResult {
	result := initResult{name: "Run history database"}
	database, err := openDatabase(cmd.Context())
	if err != nil {
		result.status = "failed"
		result.message = err.Error()
		return result
	}
	database.Close()
	result.status = "done"
	result.message = currentConfig().Database.Path
	return result
}

func checkDisplay() initResult {
	result := initResult{name: "Display"}
	desktop, release, err := adapters.OpenDesktop(adapters.Options{DisableOCR: true})
	if err != nil {
		result.status = "failed"
		result.message = err.Error()
		return result
	}
	defer release()
	result.status = "done"
	result.message = fmt.Sprintf("%d monitors detected", len(desktop.Monitors()))
	return result
}

const configTemplate = `# Affentanz Configuration File
# Every setting can be overridden with an AFFENTANZ_ environment variable,
# e.g. AFFENTANZ_PLAYBACK_ACTION_DELAY=250ms. A .env file in the working
# directory is read as well.

# global:
#   data_dir: ~/.local/share/affentanz
#   config_dir: ~/.config/affentanz

database:
  # path: ~/.local/share/affentanz/affentanz.db
  busy_timeout: 5s

logging:
  level: info        # trace, debug, info, warn, error
  format: console    # console or json
  enable_caller: false

playback:
  action_delay: 100ms
  backend: robotgo   # robotgo or dry-run

ocr:
  enabled: true
  language: eng      # tesseract languages, e.g. deu+eng

workflows:
  # dir: ~/.config/affentanz/workflows
  recent_limit: 10

metrics:
  addr: ""           # e.g. 127.0.0.1:9464

tui:
  refresh_interval: 100ms
  theme: default     # default or high-contrast
`
