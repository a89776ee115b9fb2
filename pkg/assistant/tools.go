package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"disputedesk-hq/guardrail/pkg/audit"
	"disputedesk-hq/guardrail/pkg/config"
	"disputedesk-hq/guardrail/pkg/identity"
	"disputedesk-hq/guardrail/pkg/matching"
	"disputedesk-hq/guardrail/pkg/pii"
	"disputedesk-hq/guardrail/pkg/store"
	"disputedesk-hq/guardrail/pkg/telemetry/logging"
	"disputedesk-hq/guardrail/pkg/telemetry/tracing"
)

// Tool names as exposed to the model.
const (
	ToolFindTransactions = "find_transactions"
	ToolGetTransaction   = "get_transaction"
	ToolSearchMerchants  = "search_merchants"
	ToolGetMerchant      = "get_merchant"
	ToolFlagDispute      = "flag_dispute"
	ToolGetDisputeStatus = "get_dispute_status"
	ToolListDisputes     = "list_disputes"
)

// DateLayout is the format of dates passed to FindTransactions.
const DateLayout = "2006-01-02"

// ErrInvalidArgument is matched by every argument validation failure.
var ErrInvalidArgument = errors.New("invalid argument")

// Tools implements the operations the model may request. Every call is
// scoped to the caller's identity and audited. Tools is safe for
// concurrent use.
type Tools struct {
	repo     store.Repository
	disputes store.DisputeStore
	auditor  *audit.Writer
	tracer   *tracing.Tracer
	observer Observer
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger

	mu       sync.RWMutex
	matching config.MatchingConfig
}

// ToolOption configures Tools.
type ToolOption func(*Tools)

// WithToolTracer records a span per tool call.
func WithToolTracer(t *tracing.Tracer) ToolOption {
	return func(tl *Tools) {
		tl.tracer = t
	}
}

// WithToolObserver attaches an observer.
func WithToolObserver(o Observer) ToolOption {
	return func(tl *Tools) {
		tl.observer = o
	}
}

// WithToolClock sets the time stamped on new disputes.
func WithToolClock(now func() time.Time) ToolOption {
	return func(tl *Tools) {
		tl.now = now
	}
}

// WithDisputeIDs sets the dispute id generator.
func WithDisputeIDs(newID func() string) ToolOption {
	return func(tl *Tools) {
		tl.newID = newID
	}
}

// NewTools creates the tool set.
func NewTools(repo store.Repository, disputes store.DisputeStore, auditor *audit.Writer, tolerances config.MatchingConfig, opts ...ToolOption) *Tools {
	t := &Tools{
		repo:     repo,
		disputes: disputes,
		auditor:  auditor,
		now:      time.Now,
		newID:    func() string { return "DSP-" + strings.ToUpper(uuid.New().String()[:8]) },
		logger:   slog.Default().With("component", "assistant.tools"),
		matching: tolerances,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = tracing.Noop()
	}
	return t
}

// SetMatching replaces the tolerances used by later searches.
func (t *Tools) SetMatching(cfg config.MatchingConfig) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.matching = cfg
}

func (t *Tools) tolerances() config.MatchingConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.matching
}

// call runs fn as one audited, traced tool invocation. fn returns the
// result, the number of records it holds and an error.
func call[T any](ctx context.Context, t *Tools, id identity.Identity, tool string, args map[string]any, fn func(context.Context) (T, int, error)) (T, error) {
	ctx = logging.WithTool(ctx, tool)
	ctx, span := t.tracer.Start(ctx, tracing.SpanTool)
	defer span.End()

	res, count, err := fn(ctx)

	tracing.SetToolAttributes(span, tool, count)
	resultType := ""
	if err != nil {
		tracing.SetError(span, err, "")
		t.logger.WarnContext(ctx, "tool call failed", "error", err)
	} else {
		resultType = fmt.Sprintf("%T", res)
		tracing.SetStatus(span, nil)
	}

	t.auditor.LogToolCall(ctx, id, tool, args, resultType, err)
	if t.observer != nil {
		t.observer.ObserveToolCall(tool, err)
	}
	return res, err
}

// ============================================================================
// Transactions
// ============================================================================

// FindTransactionsInput filters a transaction search. Zero fields are not
// applied.
type FindTransactionsInput struct {
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Date         string           `json:"date,omitempty"`
	MerchantName string           `json:"merchant_name,omitempty"`
	Category     string           `json:"category,omitempty"`
	Status       string           `json:"status,omitempty"`

	// Limit caps the transactions returned. Zero uses the configured
	// default.
	Limit int `json:"limit,omitempty"`
}

func (in FindTransactionsInput) args() map[string]any {
	args := map[string]any{}
	if in.Amount != nil {
		args["amount"] = in.Amount.String()
	}
	if in.Date != "" {
		args["date"] = in.Date
	}
	if in.MerchantName != "" {
		args["merchant_name"] = in.MerchantName
	}
	if in.Category != "" {
		args["category"] = in.Category
	}
	if in.Status != "" {
		args["status"] = in.Status
	}
	if in.Limit != 0 {
		args["limit"] = in.Limit
	}
	return args
}

// TransactionView is a transaction as shown to the model. The card is
// masked to its last four digits.
type TransactionView struct {
	ID       string `json:"id"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Merchant string `json:"merchant"`
	Reason   string `json:"reason"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Card     string `json:"card"`
	Location string `json:"location"`
}

// FindTransactionsOutput is the result of a search. Count is the true
// number of matches; TotalShown is how many are listed.
type FindTransactionsOutput struct {
	Transactions []TransactionView `json:"transactions"`
	Count        int               `json:"count"`
	TotalShown   int               `json:"total_shown"`
	Message      string            `json:"message"`
}

// FindTransactions searches the user's transactions. Amount and date match
// within the configured tolerances; a merchant name is resolved to every
// merchant whose name or alias contains it.
func (t *Tools) FindTransactions(ctx context.Context, id identity.Identity, in FindTransactionsInput) (*FindTransactionsOutput, error) {
	return call(ctx, t, id, ToolFindTransactions, in.args(), func(ctx context.Context) (*FindTransactionsOutput, int, error) {
		if err := id.Validate(); err != nil {
			return nil, 0, err
		}
		tol := t.tolerances()

		c := matching.Criteria{
			Amount:                 in.Amount,
			AmountTolerancePercent: tol.AmountTolerancePercent,
			DateToleranceDays:      tol.DateToleranceDays,
			Category:               in.Category,
			Status:                 matching.Status(in.Status),
		}
		if in.Date != "" {
			day, err := time.Parse(DateLayout, in.Date)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidArgument, in.Date)
			}
			c.Date = &day
		}
		if c.Status != "" && !c.Status.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, in.Status)
		}
		if in.Limit < 0 {
			return nil, 0, fmt.Errorf("%w: limit cannot be negative", ErrInvalidArgument)
		}

		if in.MerchantName != "" {
			merchants, err := t.repo.FindMerchants(ctx, in.MerchantName)
			if err != nil {
				return nil, 0, err
			}
			if len(merchants) == 0 {
				return &FindTransactionsOutput{
					Transactions: []TransactionView{},
					Message:      fmt.Sprintf("No merchant found matching '%s'.", in.MerchantName),
				}, 0, nil
			}
			c.MerchantIDs = make([]string, len(merchants))
			for i, m := range merchants {
				c.MerchantIDs[i] = m.ID
			}
		}

		res, err := t.repo.ListTransactions(ctx, id.UserID, c)
		if err != nil {
			return nil, 0, err
		}

		limit := in.Limit
		if limit == 0 {
			limit = tol.DefaultLimit
		}
		page := res.Limit(limit)

		names := t.merchantNames(ctx)
		out := &FindTransactionsOutput{
			Transactions: make([]TransactionView, 0, page.Shown),
			Count:        page.Total,
			TotalShown:   page.Shown,
			Message:      page.Summary(),
		}
		for _, tx := range page.Transactions {
			out.Transactions = append(out.Transactions, viewTransaction(tx, names))
		}
		return out, page.Shown, nil
	})
}

// TransactionDetail adds the raw amount and fees to a TransactionView.
type TransactionDetail struct {
	TransactionView
	RawAmount  string  `json:"raw_amount"`
	Currency   string  `json:"currency"`
	MerchantID string  `json:"merchant_id"`
	Fees       *string `json:"fees"`
}

// GetTransactionOutput is the result of a transaction lookup.
type GetTransactionOutput struct {
	Found       bool               `json:"found"`
	Transaction *TransactionDetail `json:"transaction,omitempty"`
	Merchant    *matching.Merchant `json:"merchant_info,omitempty"`
	Message     string             `json:"message,omitempty"`
}

// GetTransaction returns one of the user's transactions. Another user's
// transaction is reported as not found.
func (t *Tools) GetTransaction(ctx context.Context, id identity.Identity, transactionID string) (*GetTransactionOutput, error) {
	args := map[string]any{"transaction_id": transactionID}
	return call(ctx, t, id, ToolGetTransaction, args, func(ctx context.Context) (*GetTransactionOutput, int, error) {
		if err := id.Validate(); err != nil {
			return nil, 0, err
		}
		tx, err := t.repo.GetTransaction(ctx, id.UserID, transactionID)
		if errors.Is(err, store.ErrNotFound) {
			return &GetTransactionOutput{
				Message: fmt.Sprintf("Transaction %s not found for this user.", transactionID),
			}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}

		merchant := t.lookupMerchant(ctx, tx.MerchantID)
		names := map[string]string{}
		if merchant != nil {
			names[merchant.ID] = merchant.Name
		}

		detail := &TransactionDetail{
			TransactionView: viewTransaction(*tx, names),
			RawAmount:       tx.Amount.StringFixed(2),
			Currency:        tx.Currency,
			MerchantID:      tx.MerchantID,
		}
		if tx.Fees != nil {
			fees := tx.Fees.StringFixed(2)
			detail.Fees = &fees
		}
		return &GetTransactionOutput{Found: true, Transaction: detail, Merchant: merchant}, 1, nil
	})
}

// ============================================================================
// Merchants
// ============================================================================

// MerchantSummary is a short merchant description.
type MerchantSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	KnownAliases []string `json:"known_aliases,omitempty"`
}

// SearchMerchantsOutput is the result of a merchant name search.
type SearchMerchantsOutput struct {
	Found      bool              `json:"found"`
	Count      int               `json:"count"`
	Merchants  []MerchantSummary `json:"merchants"`
	Message    string            `json:"message,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
}

// SearchMerchants finds merchants whose name or alias contains name.
func (t *Tools) SearchMerchants(ctx context.Context, id identity.Identity, name string) (*SearchMerchantsOutput, error) {
	args := map[string]any{"name": name}
	return call(ctx, t, id, ToolSearchMerchants, args, func(ctx context.Context) (*SearchMerchantsOutput, int, error) {
		if strings.TrimSpace(name) == "" {
			return nil, 0, fmt.Errorf("%w: merchant name is required", ErrInvalidArgument)
		}
		merchants, err := t.repo.FindMerchants(ctx, name)
		if err != nil {
			return nil, 0, err
		}
		if len(merchants) == 0 {
			return &SearchMerchantsOutput{
				Merchants:  []MerchantSummary{},
				Message:    fmt.Sprintf("No merchant found matching '%s'.", name),
				Suggestion: "Try a different spelling or check if the merchant name appears differently on your statement.",
			}, 0, nil
		}

		out := &SearchMerchantsOutput{Found: true, Count: len(merchants)}
		for _, m := range merchants {
			out.Merchants = append(out.Merchants, MerchantSummary{
				ID:           m.ID,
				Name:         m.Name,
				Category:     m.Category,
				Description:  m.Description,
				KnownAliases: m.KnownAliases,
			})
		}
		return out, len(merchants), nil
	})
}

// GetMerchantOutput is the result of a merchant lookup.
type GetMerchantOutput struct {
	Found    bool               `json:"found"`
	Merchant *matching.Merchant `json:"merchant,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// GetMerchant returns a merchant's details.
func (t *Tools) GetMerchant(ctx context.Context, id identity.Identity, merchantID string) (*GetMerchantOutput, error) {
	args := map[string]any{"merchant_id": merchantID}
	return call(ctx, t, id, ToolGetMerchant, args, func(ctx context.Context) (*GetMerchantOutput, int, error) {
		m, err := t.repo.GetMerchant(ctx, merchantID)
		if errors.Is(err, store.ErrNotFound) {
			return &GetMerchantOutput{Message: fmt.Sprintf("Merchant %s not found.", merchantID)}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		return &GetMerchantOutput{Found: true, Merchant: m}, 1, nil
	})
}

// ============================================================================
// Disputes
// ============================================================================

// FlagDisputeInput describes a dispute to file.
type FlagDisputeInput struct {
	TransactionID string                 `json:"transaction_id"`
	Complaint     string                 `json:"complaint"`
	Context       []store.ContextMessage `json:"conversation_context,omitempty"`
}

// DisputeSummary describes the disputed transaction.
type DisputeSummary struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Merchant      string `json:"merchant"`
	Date          string `json:"date"`
	Complaint     string `json:"complaint"`
}

// FlagDisputeOutput is the result of filing a dispute. When the
// transaction already has an open dispute, Success is false and DisputeID
// names the existing one.
type FlagDisputeOutput struct {
	Success   bool                `json:"success"`
	DisputeID string              `json:"dispute_id,omitempty"`
	Status    store.DisputeStatus `json:"status,omitempty"`
	Message   string              `json:"message"`
	Summary   *DisputeSummary     `json:"summary,omitempty"`
	NextSteps []string            `json:"next_steps,omitempty"`
}

// FlagDispute files a dispute on one of the user's transactions for human
// review, persists it and records a dispute_flagged audit entry. The
// complaint and context are redacted before they are stored.
func (t *Tools) FlagDispute(ctx context.Context, id identity.Identity, in FlagDisputeInput) (*FlagDisputeOutput, error) {
	args := map[string]any{
		"transaction_id": in.TransactionID,
		"complaint":      in.Complaint,
		"context_size":   len(in.Context),
	}
	return call(ctx, t, id, ToolFlagDispute, args, func(ctx context.Context) (*FlagDisputeOutput, int, error) {
		if err := id.Validate(); err != nil {
			return nil, 0, err
		}
		if in.TransactionID == "" || strings.TrimSpace(in.Complaint) == "" {
			return nil, 0, fmt.Errorf("%w: transaction_id and complaint are required", ErrInvalidArgument)
		}

		tx, err := t.repo.GetTransaction(ctx, id.UserID, in.TransactionID)
		if errors.Is(err, store.ErrNotFound) {
			return &FlagDisputeOutput{
				Message: fmt.Sprintf("Transaction %s not found or does not belong to this user.", in.TransactionID),
			}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}

		existing, err := t.disputes.ListDisputes(ctx, id.UserID)
		if err != nil {
			return nil, 0, err
		}
		for _, d := range existing {
			if d.TransactionID == in.TransactionID && d.IsOpen() {
				return &FlagDisputeOutput{
					DisputeID: d.ID,
					Status:    d.Status,
					Message:   fmt.Sprintf("Transaction %s already has an open dispute (ID: %s).", in.TransactionID, d.ID),
				}, 0, nil
			}
		}

		complaint := pii.RedactPatterns(in.Complaint)
		dispute := &store.Dispute{
			ID:            t.newID(),
			TransactionID: in.TransactionID,
			UserID:        id.UserID,
			CreatedAt:     t.now(),
			Complaint:     complaint,
			Context:       redactContext(in.Context),
			Status:        store.DisputeFlagged,
		}
		if err := t.disputes.SaveDispute(ctx, dispute); err != nil {
			return nil, 0, err
		}
		t.auditor.LogDisputeFlagged(ctx, id, in.TransactionID, dispute.ID, complaint)

		return &FlagDisputeOutput{
			Success:   true,
			DisputeID: dispute.ID,
			Status:    dispute.Status,
			Message:   "Your dispute has been successfully filed and flagged for review.",
			Summary: &DisputeSummary{
				TransactionID: tx.ID,
				Amount:        tx.DisplayAmount(),
				Merchant:      t.merchantName(ctx, tx.MerchantID),
				Date:          tx.Date.Format(DateLayout),
				Complaint:     complaint,
			},
			NextSteps: []string{
				"A human agent will review your dispute within 1-2 business days.",
				"You will receive a notification when the review is complete.",
				"Your dispute reference number is: " + dispute.ID,
			},
		}, 1, nil
	})
}

// DisputeView is a dispute as shown to the model.
type DisputeView struct {
	ID              string              `json:"id"`
	Status          store.DisputeStatus `json:"status"`
	CreatedAt       string              `json:"created_at"`
	Complaint       string              `json:"complaint"`
	ResolutionNotes string              `json:"resolution_notes,omitempty"`
	TransactionID   string              `json:"transaction_id"`
	Amount          string              `json:"amount"`
	Merchant        string              `json:"merchant"`
}

// GetDisputeStatusOutput is the result of a dispute lookup.
type GetDisputeStatusOutput struct {
	Found   bool         `json:"found"`
	Dispute *DisputeView `json:"dispute,omitempty"`
	Message string       `json:"message,omitempty"`
}

// GetDisputeStatus reports on one of the user's disputes. Another user's
// dispute is reported as not found.
func (t *Tools) GetDisputeStatus(ctx context.Context, id identity.Identity, disputeID string) (*GetDisputeStatusOutput, error) {
	args := map[string]any{"dispute_id": disputeID}
	return call(ctx, t, id, ToolGetDisputeStatus, args, func(ctx context.Context) (*GetDisputeStatusOutput, int, error) {
		if err := id.Validate(); err != nil {
			return nil, 0, err
		}
		d, err := t.disputes.GetDispute(ctx, disputeID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && d.UserID != id.UserID) {
			return &GetDisputeStatusOutput{Message: fmt.Sprintf("Dispute %s not found.", disputeID)}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		view := t.viewDispute(ctx, id, *d)
		return &GetDisputeStatusOutput{Found: true, Dispute: &view}, 1, nil
	})
}

// ListDisputesOutput lists the user's disputes, newest first.
type ListDisputesOutput struct {
	Count    int           `json:"count"`
	Disputes []DisputeView `json:"disputes"`
	Message  string        `json:"message,omitempty"`
}

// ListDisputes returns every dispute the user has filed.
func (t *Tools) ListDisputes(ctx context.Context, id identity.Identity) (*ListDisputesOutput, error) {
	return call(ctx, t, id, ToolListDisputes, nil, func(ctx context.Context) (*ListDisputesOutput, int, error) {
		if err := id.Validate(); err != nil {
			return nil, 0, err
		}
		disputes, err := t.disputes.ListDisputes(ctx, id.UserID)
		if err != nil {
			return nil, 0, err
		}

		out := &ListDisputesOutput{Count: len(disputes), Disputes: make([]DisputeView, 0, len(disputes))}
		if len(disputes) == 0 {
			out.Message = "You have no disputes on file."
		}
		for _, d := range disputes {
			out.Disputes = append(out.Disputes, t.viewDispute(ctx, id, d))
		}
		return out, len(disputes), nil
	})
}

// ============================================================================
// Helpers
// ============================================================================

func viewTransaction(tx matching.Transaction, merchantNames map[string]string) TransactionView {
	merchant := merchantNames[tx.MerchantID]
	if merchant == "" {
		merchant = tx.MerchantID
	}
	location := tx.Location
	if location == "" {
		location = "Online"
	}
	return TransactionView{
		ID:       tx.ID,
		Amount:   tx.DisplayAmount(),
		Date:     tx.Date.Format("2006-01-02 15:04"),
		Merchant: merchant,
		Reason:   tx.Reason,
		Category: tx.Category,
		Status:   string(tx.Status),
		Card:     pii.MaskCardNumber(tx.CardLast4),
		Location: location,
	}
}

// merchantNames maps merchant ids to names. A lookup failure leaves the
// map empty so views fall back to ids.
func (t *Tools) merchantNames(ctx context.Context) map[string]string {
	names := make(map[string]string)
	merchants, err := t.repo.ListMerchants(ctx)
	if err != nil {
		t.logger.WarnContext(ctx, "failed to list merchants", "error", err)
		return names
	}
	for _, m := range merchants {
		names[m.ID] = m.Name
	}
	return names
}

func (t *Tools) lookupMerchant(ctx context.Context, merchantID string) *matching.Merchant {
	m, err := t.repo.GetMerchant(ctx, merchantID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			t.logger.WarnContext(ctx, "failed to get merchant", "merchant_id", merchantID, "error", err)
		}
		return nil
	}
	return m
}

func (t *Tools) merchantName(ctx context.Context, merchantID string) string {
	if m := t.lookupMerchant(ctx, merchantID); m != nil {
		return m.Name
	}
	return merchantID
}

func (t *Tools) viewDispute(ctx context.Context, id identity.Identity, d store.Dispute) DisputeView {
	view := DisputeView{
		ID:              d.ID,
		Status:          d.Status,
		CreatedAt:       d.CreatedAt.Format("2006-01-02 15:04"),
		Complaint:       d.Complaint,
		ResolutionNotes: d.ResolutionNotes,
		TransactionID:   d.TransactionID,
		Amount:          "Unknown",
		Merchant:        "Unknown",
	}
	tx, err := t.repo.GetTransaction(ctx, id.UserID, d.TransactionID)
	if err != nil {
		return view
	}
	view.Amount = tx.DisplayAmount()
	view.Merchant = t.merchantName(ctx, tx.MerchantID)
	return view
}

func redactContext(msgs []store.ContextMessage) []store.ContextMessage {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]store.ContextMessage, len(msgs))
	for i, m := range msgs {
		out[i] = store.ContextMessage{Role: m.Role, Content: pii.RedactPatterns(m.Content)}
	}
	return out
}
