package commands

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/itchyny/gojq"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/inkwell-md/inkwell/internal/config"
	"github.com/inkwell-md/inkwell/internal/content"
	"github.com/inkwell-md/inkwell/internal/docstore"
	"github.com/inkwell-md/inkwell/internal/pathguard"
	"github.com/inkwell-md/inkwell/internal/watcher"
	"github.com/inkwell-md/inkwell/pkg/types"
)

var (
	checkJQ    string
	checkQuiet bool
	checkDir   string
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Validate content files and report problems",
	Long: `Validate content files the way a save would: front matter syntax,
component markup and the configured front-matter rules.

Directories are walked for files with the configured extensions;
explicitly named files are checked regardless of extension. Without
arguments the configured roots are checked. Exit code 1 when any file
is invalid.

Examples:
  inkwell check docs/
  inkwell check --jq '.files[] | select(.valid | not) | .path'
  inkwell check --quiet && deploy`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkJQ, "jq", "", "Filter the JSON report with a jq expression")
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "No output, exit code only")
	checkCmd.Flags().StringVar(&checkDir, "dir", "", "Project directory (defaults to the working directory)")
}

// CheckFile is one file's outcome in the check report.
type CheckFile struct {
	Path   string                  `json:"path"`
	Valid  bool                    `json:"valid"`
	Errors []types.ValidationError `json:"errors,omitempty"`
}

// CheckReport is the JSON shape of a check run.
type CheckReport struct {
	Checked int         `json:"checked"`
	Invalid int         `json:"invalid"`
	Files   []CheckFile `json:"files"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(checkDir)
	if err != nil {
		return err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}

	validator, err := content.New(appConfig.Rules)
	if err != nil {
		return fmt.Errorf("front matter rules: %w", err)
	}

	targets := args
	if len(targets) == 0 {
		targets = watcher.BaseDirs(appConfig.Roots)
		if len(targets) == 0 {
			targets = []string{workDir}
		}
	}

	files, err := collectFiles(targets, appConfig.Extensions)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	report := CheckReport{Checked: len(files), Files: make([]CheckFile, 0, len(files))}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			report.Invalid++
			report.Files = append(report.Files, CheckFile{
				Path:   path,
				Errors: []types.ValidationError{{Message: err.Error()}},
			})
			continue
		}
		res := validator.Validate(ctx, string(data))
		if !res.Valid {
			report.Invalid++
		}
		report.Files = append(report.Files, CheckFile{Path: path, Valid: res.Valid, Errors: res.Errors})
	}

	if err := printReport(report); err != nil {
		return err
	}
	if report.Invalid > 0 {
		if checkQuiet {
			os.Exit(1)
		}
		return fmt.Errorf("%d of %d files invalid", report.Invalid, report.Checked)
	}
	return nil
}

// collectFiles expands targets into the list of files to check.
// Directories are walked, skipping hidden subdirectories and store
// temp files; explicit file arguments pass through unchecked.
func collectFiles(targets []string, extensions []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(target)
			continue
		}

		walkErr := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != target && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if pathguard.AllowedExtension(path, extensions) && !docstore.IsTempPath(path) {
				add(path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}

	sort.Strings(files)
	return files, nil
}

func printReport(report CheckReport) error {
	if checkQuiet {
		return nil
	}
	if checkJQ != "" {
		return printJQ(report, checkJQ)
	}

	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd())
	okMark := color.New(color.FgGreen).Sprint("ok")
	badMark := color.New(color.FgRed, color.Bold).Sprint("invalid")
	position := color.New(color.FgYellow)

	for _, f := range report.Files {
		if f.Valid {
			fmt.Printf("%s      %s\n", okMark, f.Path)
			continue
		}
		fmt.Printf("%s %s\n", badMark, f.Path)
		for _, e := range f.Errors {
			if e.Line > 0 {
				fmt.Printf("        %s %s\n", position.Sprintf("%d:%d", e.Line, e.Column), e.Message)
			} else {
				fmt.Printf("        %s\n", e.Message)
			}
		}
	}
	fmt.Printf("\n%d checked, %d invalid\n", report.Checked, report.Invalid)
	return nil
}

// printJQ runs a jq expression over the JSON report and prints each
// result, strings raw like jq -r.
func printJQ(report CheckReport, expr string) error {
	query, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("jq: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("jq: %w", err)
	}

	// gojq operates on generic JSON values, so round-trip the report.
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	iter := code.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if jqErr, isErr := v.(error); isErr {
			return fmt.Errorf("jq: %w", jqErr)
		}
		if s, isStr := v.(string); isStr {
			fmt.Println(s)
			continue
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
