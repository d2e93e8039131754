// Command excite rewrites citation and bibliography markers in Apple
// Pages documents. It numbers \cite{label} markers, reorders the
// \bibitem{label} entries to match, and keeps backups and a run history
// along the way.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/excite/core/bibliography"
	"github.com/FocuswithJustin/excite/core/excite"
	"github.com/FocuswithJustin/excite/core/render"
	"github.com/FocuswithJustin/excite/internal/archive"
	"github.com/FocuswithJustin/excite/internal/history"
	"github.com/FocuswithJustin/excite/internal/logging"
	"github.com/FocuswithJustin/excite/internal/pages"
	"github.com/FocuswithJustin/excite/internal/sqlite"
)

const version = "0.2.0"

// CLI defines the command-line interface for excite.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`

	Process ProcessCmd  `cmd:"" help:"Rewrite citations and references in a document"`
	Inspect InspectCmd  `cmd:"" help:"Survey a document's markers without changing it"`
	Backup  BackupGroup `cmd:"" help:"Backup operations (list, restore)"`
	History HistoryCmd  `cmd:"" help:"Show past processing runs"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

func initLogging() {
	level := map[string]logging.Level{
		"debug": logging.LevelDebug,
		"info":  logging.LevelInfo,
		"warn":  logging.LevelWarn,
		"error": logging.LevelError,
	}[CLI.LogLevel]
	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)
}

// defaultStateDir is where backups and the history database live.
func defaultStateDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".excite")
	}
	return ".excite"
}

// ProcessCmd rewrites a document's markers in place or to a new file.
type ProcessCmd struct {
	Path string `arg:"" help:"Path to the Pages document" type:"existingfile"`
	Out  string `help:"Output path (default: rewrite in place)" type:"path"`

	CitationStyle  string `name:"citation-style" default:"square-brace" enum:"square-brace,superscript,parens" help:"How citation markers are rendered"`
	ReferenceStyle string `name:"reference-style" default:"digit-dot" enum:"square-brace,digit-dot" help:"How reference entries are prefixed"`
	Order          string `default:"citation-first" enum:"citation-first,reference-first" help:"Numbering policy"`

	NoBackup     bool   `name:"no-backup" help:"Skip the pre-rewrite backup"`
	BackupDir    string `name:"backup-dir" help:"Backup directory (default: ~/.excite/backups)" type:"path"`
	BackupFormat string `name:"backup-format" default:"tar.xz" enum:"tar.gz,tar.xz" help:"Backup archive format"`
	HistoryDB    string `name:"history-db" help:"History database path (default: ~/.excite/history.db)" type:"path"`
}

func (c *ProcessCmd) Run() error {
	initLogging()
	start := time.Now()

	citation, err := render.ParseCitationStyle(c.CitationStyle)
	if err != nil {
		return err
	}
	reference, err := render.ParseReferenceStyle(c.ReferenceStyle)
	if err != nil {
		return err
	}
	order, err := bibliography.ParseOrderPolicy(c.Order)
	if err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		out = c.Path
	}

	inputHash, err := history.HashFile(c.Path)
	if err != nil {
		return err
	}

	var backupPath string
	if !c.NoBackup {
		backupDir := c.BackupDir
		if backupDir == "" {
			backupDir = filepath.Join(defaultStateDir(), "backups")
		}
		backupPath, err = archive.Snapshot(c.Path, backupDir, c.BackupFormat)
		if err != nil {
			return fmt.Errorf("backing up document: %w", err)
		}
		logging.BackupCreated(c.Path, backupPath, c.BackupFormat)
	}

	doc, err := pages.Open(c.Path)
	if err != nil {
		logging.ProcessingError(c.Path, "open", err)
		return err
	}
	nodes, err := doc.TextNodes()
	if err != nil {
		return err
	}
	logging.DocumentOpened(c.Path, len(nodes))

	report, err := doc.Process(citation, reference, order)
	if err != nil {
		logging.ProcessingError(c.Path, "process", err)
		return err
	}

	if err := doc.Materialize(out); err != nil {
		logging.ProcessingError(c.Path, "write", err)
		return err
	}

	outputHash, err := history.HashFile(out)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logging.ProcessingRun(c.Path, report.Labels, report.Citations, report.References,
		time.Since(start), "order", c.Order)

	historyDB := c.HistoryDB
	if historyDB == "" {
		historyDB = filepath.Join(defaultStateDir(), "history.db")
	}
	store, err := history.Open(historyDB)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()
	run, err := store.Record(history.Run{
		ID:             runID,
		InputPath:      c.Path,
		OutputPath:     out,
		BackupPath:     backupPath,
		InputHash:      inputHash,
		OutputHash:     outputHash,
		CitationStyle:  c.CitationStyle,
		ReferenceStyle: c.ReferenceStyle,
		OrderPolicy:    c.Order,
		Citations:      report.Citations,
		References:     report.References,
		Labels:         report.Labels,
	})
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	logging.HistoryRecorded(run.ID, c.Path)

	fmt.Printf("Processed: %s\n", c.Path)
	fmt.Printf("  Labels:     %d\n", report.Labels)
	fmt.Printf("  Citations:  %d\n", report.Citations)
	fmt.Printf("  References: %d\n", report.References)
	if backupPath != "" {
		fmt.Printf("  Backup:     %s\n", backupPath)
	}
	fmt.Printf("Written: %s\n", out)
	return nil
}

// InspectCmd surveys a document without mutating it.
type InspectCmd struct {
	Path  string `arg:"" help:"Path to the Pages document" type:"existingfile"`
	Order string `default:"citation-first" enum:"citation-first,reference-first" help:"Numbering policy to preview"`
	JSON  bool   `help:"Emit the survey as JSON"`
}

func (c *InspectCmd) Run() error {
	initLogging()

	order, err := bibliography.ParseOrderPolicy(c.Order)
	if err != nil {
		return err
	}

	doc, err := pages.Open(c.Path)
	if err != nil {
		return err
	}
	nodes, err := doc.TextNodes()
	if err != nil {
		return err
	}

	survey := excite.Inspect(nodes, order)

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(survey)
	}

	fmt.Printf("Document: %s\n", c.Path)
	fmt.Printf("Policy:   %s\n", survey.Policy)
	fmt.Printf("Markers:  %d citations across %d labels\n", survey.CitationTotal, len(survey.Labels))
	for _, label := range survey.Labels {
		index := "-"
		if label.Index > 0 {
			index = fmt.Sprintf("%d", label.Index)
		}
		ref := "no reference"
		if label.HasReference {
			ref = label.ReferenceText
		}
		fmt.Printf("  [%s] %s cited %dx: %s\n", index, label.Label, label.Citations, ref)
	}
	if len(survey.Missing) > 0 {
		fmt.Printf("Missing references: %v\n", survey.Missing)
	}
	if len(survey.Uncited) > 0 {
		fmt.Printf("Uncited references: %v\n", survey.Uncited)
	}
	if len(survey.Duplicates) > 0 {
		fmt.Printf("Duplicate entries: %v\n", survey.Duplicates)
	}
	if survey.Consistent {
		fmt.Println("Document is consistent.")
	} else {
		fmt.Println("Document is NOT consistent; process would fail.")
	}
	return nil
}

// BackupGroup contains backup operations.
type BackupGroup struct {
	List    BackupListCmd    `cmd:"" help:"List backups"`
	Restore BackupRestoreCmd `cmd:"" help:"Restore a document from a backup"`
}

// BackupListCmd lists snapshots in the backup directory.
type BackupListCmd struct {
	Dir  string `help:"Backup directory (default: ~/.excite/backups)" type:"path"`
	JSON bool   `help:"Emit the list as JSON"`
}

func (c *BackupListCmd) Run() error {
	initLogging()

	dir := c.Dir
	if dir == "" {
		dir = filepath.Join(defaultStateDir(), "backups")
	}
	backups, err := archive.List(dir)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(backups)
	}

	if len(backups) == 0 {
		fmt.Println("No backups found.")
		return nil
	}
	for _, b := range backups {
		fmt.Printf("%s  %8d bytes  %s\n", b.ModTime.Format(time.RFC3339), b.Size, b.Name)
	}
	return nil
}

// BackupRestoreCmd restores a document from a snapshot.
type BackupRestoreCmd struct {
	Backup string `arg:"" help:"Path to the backup archive" type:"existingfile"`
	Out    string `required:"" help:"Where to write the restored document" type:"path"`
}

func (c *BackupRestoreCmd) Run() error {
	initLogging()

	if err := archive.Restore(c.Backup, c.Out); err != nil {
		return err
	}
	fmt.Printf("Restored: %s -> %s\n", c.Backup, c.Out)
	return nil
}

// HistoryCmd lists or shows recorded processing runs.
type HistoryCmd struct {
	ID    string `arg:"" optional:"" help:"Show one run by ID"`
	Limit int    `default:"20" help:"Maximum number of runs to list"`
	JSON  bool   `help:"Emit runs as JSON"`
	DB    string `name:"db" help:"History database path (default: ~/.excite/history.db)" type:"path"`
}

func (c *HistoryCmd) Run() error {
	initLogging()

	db := c.DB
	if db == "" {
		db = filepath.Join(defaultStateDir(), "history.db")
	}
	store, err := history.Open(db)
	if err != nil {
		return err
	}
	defer store.Close()

	if c.ID != "" {
		run, err := store.Get(c.ID)
		if err != nil {
			return err
		}
		return printRuns(c.JSON, run)
	}

	runs, err := store.List(c.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 && !c.JSON {
		fmt.Println("No runs recorded.")
		return nil
	}
	return printRuns(c.JSON, runs...)
}

func printRuns(asJSON bool, runs ...history.Run) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	for _, run := range runs {
		fmt.Printf("%s  %s\n", run.CreatedAt.Format(time.RFC3339), run.ID)
		fmt.Printf("  %s -> %s\n", run.InputPath, run.OutputPath)
		fmt.Printf("  %s/%s/%s  labels=%d citations=%d references=%d\n",
			run.CitationStyle, run.ReferenceStyle, run.OrderPolicy,
			run.Labels, run.Citations, run.References)
		if run.BackupPath != "" {
			fmt.Printf("  backup: %s\n", run.BackupPath)
		}
	}
	return nil
}

// VersionCmd prints version and build information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("excite version %s (sqlite driver: %s)\n", version, sqlite.DriverType())
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("excite"),
		kong.Description("Citation and bibliography rewriting for Pages documents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
