package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"disputedesk-hq/guardrail/pkg/cli"
	"disputedesk-hq/guardrail/pkg/identity"
	"disputedesk-hq/guardrail/pkg/matching"
	"disputedesk-hq/guardrail/pkg/pii"
)

var matchFlags struct {
	driver   string
	db       string
	user     string
	amount   string
	date     string
	merchant string
	category string
	status   string
	limit    int
	format   string
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Search a user's transactions with tolerance",
	Long: `Search one user's transactions the way the assistant's tools do.

Amounts match within matching.amount_tolerance_percent of the target and
dates within matching.date_tolerance_days calendar days. A merchant name is
resolved to every merchant whose name or alias contains it.

Examples:
  guardrail match --user user_123 --amount 50
  guardrail match --user user_123 --date 2025-01-14 --merchant coffee
  guardrail match --db data/guardrail.db --user user_123 --status pending --format csv`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVar(&matchFlags.driver, "driver", "", "store driver: memory, sqlite, sqlite3 (uses config if not specified)")
	matchCmd.Flags().StringVar(&matchFlags.db, "db", "", "database path (uses config if not specified)")
	matchCmd.Flags().StringVarP(&matchFlags.user, "user", "u", "", "user id (required)")
	matchCmd.Flags().StringVar(&matchFlags.amount, "amount", "", "target amount, e.g. 45.99")
	matchCmd.Flags().StringVar(&matchFlags.date, "date", "", "target date (YYYY-MM-DD)")
	matchCmd.Flags().StringVar(&matchFlags.merchant, "merchant", "", "merchant name or alias")
	matchCmd.Flags().StringVar(&matchFlags.category, "category", "", "transaction category")
	matchCmd.Flags().StringVar(&matchFlags.status, "status", "", "posted, pending or refunded")
	matchCmd.Flags().IntVarP(&matchFlags.limit, "limit", "n", 0, "maximum rows (uses matching.default_limit if 0)")
	matchCmd.Flags().StringVarP(&matchFlags.format, "format", "f", "text", "output format: text, json, yaml, csv")
	_ = matchCmd.MarkFlagRequired("user")
}

// matchResult is the output of the match command.
type matchResult struct {
	Total        int              `json:"total" yaml:"total"`
	Shown        int              `json:"shown" yaml:"shown"`
	Message      string           `json:"message" yaml:"message"`
	Transactions []transactionRow `json:"transactions" yaml:"transactions"`
}

type transactionRow struct {
	ID       string `json:"id" yaml:"id"`
	Date     string `json:"date" yaml:"date"`
	Amount   string `json:"amount" yaml:"amount"`
	Merchant string `json:"merchant" yaml:"merchant"`
	Category string `json:"category" yaml:"category"`
	Status   string `json:"status" yaml:"status"`
	Card     string `json:"card" yaml:"card"`
}

func (m matchResult) Header() []string {
	return []string{"id", "date", "amount", "merchant", "category", "status", "card"}
}

func (m matchResult) Rows() [][]string {
	rows := make([][]string, len(m.Transactions))
	for i, t := range m.Transactions {
		rows[i] = []string{t.ID, t.Date, t.Amount, t.Merchant, t.Category, t.Status, t.Card}
	}
	return rows
}

func (m matchResult) String() string {
	return m.Message
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(cli.OutputFormat(matchFlags.format))
	if err != nil {
		return err
	}

	user := identity.New(matchFlags.user)
	if err := user.Validate(); err != nil {
		return err
	}

	criteria := matching.Criteria{
		AmountTolerancePercent: cfg.Matching.AmountTolerancePercent,
		DateToleranceDays:      cfg.Matching.DateToleranceDays,
		Category:               matchFlags.category,
		Status:                 matching.Status(matchFlags.status),
	}
	if matchFlags.amount != "" {
		amount, err := decimal.NewFromString(matchFlags.amount)
		if err != nil {
			return fmt.Errorf("invalid --amount %q: %w", matchFlags.amount, err)
		}
		criteria.Amount = &amount
	}
	if matchFlags.date != "" {
		day, err := time.Parse("2006-01-02", matchFlags.date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", matchFlags.date)
		}
		criteria.Date = &day
	}
	if criteria.Status != "" && !criteria.Status.Valid() {
		return fmt.Errorf("invalid --status %q: want posted, pending or refunded", matchFlags.status)
	}

	storeCfg := cfg.Store
	if matchFlags.driver != "" {
		storeCfg.Driver = matchFlags.driver
	}
	if matchFlags.db != "" {
		storeCfg.Path = matchFlags.db
	}
	repo, err := openStore(storeCfg)
	if err != nil {
		return cli.NewCommandError("match", err)
	}
	defer repo.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	merchants, err := repo.ListMerchants(ctx)
	if err != nil {
		return cli.NewCommandError("match", err)
	}
	names := make(map[string]string, len(merchants))
	for _, m := range merchants {
		names[m.ID] = m.Name
	}
	if matchFlags.merchant != "" {
		criteria.MerchantIDs = matching.ResolveMerchantIDs(merchants, matchFlags.merchant)
		if len(criteria.MerchantIDs) == 0 {
			return formatter.FormatTo(cmd.OutOrStdout(), matchResult{
				Message:      fmt.Sprintf("No merchant found matching '%s'.", matchFlags.merchant),
				Transactions: []transactionRow{},
			})
		}
	}

	res, err := repo.ListTransactions(ctx, user.UserID, criteria)
	if err != nil {
		return cli.NewCommandError("match", err)
	}

	limit := matchFlags.limit
	if limit <= 0 {
		limit = cfg.Matching.DefaultLimit
	}
	page := res.Limit(limit)

	out := matchResult{
		Total:        page.Total,
		Shown:        page.Shown,
		Message:      page.Summary(),
		Transactions: make([]transactionRow, len(page.Transactions)),
	}
	for i, t := range page.Transactions {
		merchant := names[t.MerchantID]
		if merchant == "" {
			merchant = t.MerchantID
		}
		out.Transactions[i] = transactionRow{
			ID:       t.ID,
			Date:     t.Date.Format("2006-01-02 15:04"),
			Amount:   t.DisplayAmount(),
			Merchant: merchant,
			Category: t.Category,
			Status:   string(t.Status),
			Card:     pii.MaskCardNumber(t.CardLast4),
		}
	}
	return formatter.FormatTo(cmd.OutOrStdout(), out)
}
