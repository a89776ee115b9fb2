package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"disputedesk-hq/guardrail/pkg/cli"
	"disputedesk-hq/guardrail/pkg/pii"
)

var redactFlags struct {
	patternsOnly bool
}

var redactCmd = &cobra.Command{
	Use:   "redact [text]",
	Short: "Redact personal data from text",
	Long: `Replace personal data with redaction tokens.

The pattern pass replaces card numbers, SSNs, emails, phone numbers, routing
and account numbers. Unless --patterns-only is given or pii.entity_pass is
off, the entity pass then replaces names, locations, IBANs and similar
entities with <KIND> placeholders.

Text is read from standard input when no argument is given.

Examples:
  guardrail redact "Card 4111 1111 1111 1111, email jane@example.com"
  cat transcript.txt | guardrail redact --patterns-only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRedact,
}

var detectFlags struct {
	format string
}

var detectCmd = &cobra.Command{
	Use:   "detect [text]",
	Short: "Report personal data found in text",
	Long: `List the personal data the redaction passes would replace, with byte
offsets into the input. Text is read from standard input when no argument is
given.

Examples:
  guardrail detect "SSN 123-45-6789"
  guardrail detect --format csv < transcript.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(detectCmd)

	redactCmd.Flags().BoolVar(&redactFlags.patternsOnly, "patterns-only", false, "run only the pattern pass")
	detectCmd.Flags().StringVarP(&detectFlags.format, "format", "f", "json", "output format: text, json, yaml, csv")
}

func runRedact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}

	var out string
	if redactFlags.patternsOnly {
		out = pii.RedactPatterns(text)
	} else {
		out = newRedactor(cfg.PII, nil).Redact(text)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

// matchTable renders detections as rows.
type matchTable []pii.Match

func (t matchTable) Header() []string { return []string{"type", "start", "end", "text"} }

func (t matchTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, m := range t {
		rows[i] = []string{string(m.Kind), strconv.Itoa(m.Start), strconv.Itoa(m.End), m.Text}
	}
	return rows
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(cli.OutputFormat(detectFlags.format))
	if err != nil {
		return err
	}
	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}

	matches := newRedactor(cfg.PII, nil).Detect(text)
	if matches == nil {
		matches = []pii.Match{}
	}
	return formatter.FormatTo(cmd.OutOrStdout(), matchTable(matches))
}

// inputText returns the single argument or, without one, standard input
// minus its trailing newline.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
