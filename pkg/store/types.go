package store

import (
	"context"
	"time"

	"disputedesk-hq/guardrail/pkg/matching"
)

// Repository is the read side used by the matching tools.
type Repository interface {
	// ListTransactions returns the user's transactions satisfying c,
	// newest first, with the true total.
	ListTransactions(ctx context.Context, userID string, c matching.Criteria) (matching.Result, error)

	// GetTransaction returns one of the user's transactions or ErrNotFound.
	GetTransaction(ctx context.Context, userID, id string) (*matching.Transaction, error)

	ListMerchants(ctx context.Context) ([]matching.Merchant, error)

	// GetMerchant returns a merchant by id or ErrNotFound.
	GetMerchant(ctx context.Context, id string) (*matching.Merchant, error)

	// FindMerchants returns merchants whose name or alias contains name.
	FindMerchants(ctx context.Context, name string) ([]matching.Merchant, error)
}

// DisputeStatus is the review state of a dispute.
type DisputeStatus string

const (
	DisputeFlagged     DisputeStatus = "flagged"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeResolved    DisputeStatus = "resolved"
)

// ContextMessage is one conversation turn attached to a dispute.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Dispute is a transaction flagged for human review.
type Dispute struct {
	ID              string           `json:"id"`
	TransactionID   string           `json:"transaction_id"`
	UserID          string           `json:"user_id"`
	CreatedAt       time.Time        `json:"created_at"`
	Complaint       string           `json:"complaint"`
	Context         []ContextMessage `json:"conversation_context,omitempty"`
	Status          DisputeStatus    `json:"status"`
	ResolutionNotes string           `json:"resolution_notes,omitempty"`
}

// IsOpen reports whether the dispute still awaits resolution.
func (d Dispute) IsOpen() bool {
	return d.Status != DisputeResolved
}

// DisputeStore persists disputes.
type DisputeStore interface {
	SaveDispute(ctx context.Context, d *Dispute) error

	// GetDispute returns a dispute by id or ErrNotFound.
	GetDispute(ctx context.Context, id string) (*Dispute, error)

	// ListDisputes returns the user's disputes, newest first.
	ListDisputes(ctx context.Context, userID string) ([]Dispute, error)
}

// Store is a complete backend.
type Store interface {
	Repository
	DisputeStore

	PutMerchants(ctx context.Context, merchants ...matching.Merchant) error
	PutTransactions(ctx context.Context, txns ...matching.Transaction) error

	// Ping reports whether the backend can serve requests.
	Ping(ctx context.Context) error

	Close() error
}
