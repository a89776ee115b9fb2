package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"disputedesk-hq/guardrail/pkg/audit"
	"disputedesk-hq/guardrail/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and maintain the audit log",
	Long: `Inspect and maintain the per-day audit partitions.

Each partition is a JSONL file whose entries are chained by SHA-256 hashes.
verify recomputes the chain and reports the first entry that does not match.
prune removes partitions older than the retention period.`,
}

var verifyFlags struct {
	dir      string
	format   string
	progress bool
}

var verifyCmd = &cobra.Command{
	Use:   "verify [partition...]",
	Short: "Verify the hash chain of audit partitions",
	Long: `Recompute the hash chain of each partition.

With no arguments every partition in --dir (or audit.dir) is checked. The
command exits with status 2 when any chain is broken.

Examples:
  guardrail audit verify logs/audit_2025-01-15.jsonl
  guardrail audit verify --dir /var/log/guardrail --format json`,
	RunE: runVerify,
}

var pruneFlags struct {
	dir           string
	retentionDays int
	dryRun        bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove audit partitions past retention",
	Long: `Remove partitions whose day is more than the retention period before
today. Today's partition is never removed.

Examples:
  guardrail audit prune
  guardrail audit prune --dir logs --retention-days 30
  guardrail audit prune --dry-run`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(verifyCmd)
	auditCmd.AddCommand(pruneCmd)

	verifyCmd.Flags().StringVar(&verifyFlags.dir, "dir", "", "partition directory (uses config if not specified)")
	verifyCmd.Flags().StringVarP(&verifyFlags.format, "format", "f", "text", "output format: text, json, yaml, csv")
	verifyCmd.Flags().BoolVar(&verifyFlags.progress, "progress", false, "show progress on stderr")

	pruneCmd.Flags().StringVar(&pruneFlags.dir, "dir", "", "partition directory (uses config if not specified)")
	pruneCmd.Flags().IntVar(&pruneFlags.retentionDays, "retention-days", -1, "days to keep (uses config if not specified)")
	pruneCmd.Flags().BoolVar(&pruneFlags.dryRun, "dry-run", false, "list partitions without removing them")
}

// verifyReport is the output of audit verify.
type verifyReport struct {
	Valid      bool                  `json:"valid" yaml:"valid"`
	Partitions []*audit.VerifyResult `json:"partitions" yaml:"partitions"`
}

func (r verifyReport) Header() []string {
	return []string{"partition", "entries", "valid", "broken_line", "reason"}
}

func (r verifyReport) Rows() [][]string {
	rows := make([][]string, len(r.Partitions))
	for i, p := range r.Partitions {
		broken := ""
		if p.BrokenLine > 0 {
			broken = strconv.Itoa(p.BrokenLine)
		}
		rows[i] = []string{filepath.Base(p.Path), strconv.Itoa(p.Entries), strconv.FormatBool(p.Valid), broken, p.Reason}
	}
	return rows
}

func runVerify(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(verifyFlags.format))
	if err != nil {
		return err
	}

	files := args
	if len(files) == 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir := verifyFlags.dir
		if dir == "" {
			dir = cfg.Audit.Dir
		}
		if files, err = audit.Partitions(dir); err != nil {
			return cli.NewCommandError("audit verify", err)
		}
		if len(files) == 0 {
			return cli.NewCommandError("audit verify", fmt.Errorf("no audit partitions in %s", dir))
		}
	}

	var progress cli.ProgressReporter
	if verifyFlags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "partitions")
		progress.Start(int64(len(files)))
	}

	report := verifyReport{Valid: true}
	for i, path := range files {
		res, err := audit.Verify(path)
		if err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("audit verify", err)
		}
		report.Partitions = append(report.Partitions, res)
		report.Valid = report.Valid && res.Valid
		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}

	if err := formatter.FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if !report.Valid {
		return &cli.CheckFailedError{What: "audit chain"}
	}
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	retention := audit.RetentionConfig{Dir: cfg.Audit.Dir, RetentionDays: cfg.Audit.RetentionDays}
	if pruneFlags.dir != "" {
		retention.Dir = pruneFlags.dir
	}
	if pruneFlags.retentionDays >= 0 {
		retention.RetentionDays = pruneFlags.retentionDays
	}

	out := cmd.OutOrStdout()
	if pruneFlags.dryRun {
		return listPrunable(out, retention)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	removed, err := audit.NewPruner(retention).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	fmt.Fprintf(out, "Removed %d partition(s) older than %d days from %s\n", removed, retention.RetentionDays, retention.Dir)
	return nil
}

func listPrunable(out io.Writer, retention audit.RetentionConfig) error {
	if retention.RetentionDays <= 0 {
		fmt.Fprintln(out, "Retention is disabled; nothing would be removed")
		return nil
	}
	files, err := audit.Partitions(retention.Dir)
	if os.IsNotExist(err) {
		files, err = nil, nil
	}
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}

	expired := audit.Expired(files, retention.RetentionDays, time.Now())
	for _, path := range expired {
		fmt.Fprintf(out, "would remove %s\n", path)
	}
	fmt.Fprintf(out, "%d partition(s) would be removed\n", len(expired))
	return nil
}
