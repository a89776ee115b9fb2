package store

import (
	"context"
	"sort"
	"sync"

	"disputedesk-hq/guardrail/pkg/matching"
)

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu           sync.RWMutex
	merchants    map[string]matching.Merchant
	merchantIDs  []string
	transactions map[string]matching.Transaction
	disputes     map[string]Dispute
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		merchants:    make(map[string]matching.Merchant),
		transactions: make(map[string]matching.Transaction),
		disputes:     make(map[string]Dispute),
	}
}

// PutMerchants inserts or replaces merchants.
func (m *MemoryStore) PutMerchants(_ context.Context, merchants ...matching.Merchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, merchant := range merchants {
		if _, exists := m.merchants[merchant.ID]; !exists {
			m.merchantIDs = append(m.merchantIDs, merchant.ID)
		}
		m.merchants[merchant.ID] = merchant
	}
	return nil
}

// PutTransactions inserts or replaces transactions.
func (m *MemoryStore) PutTransactions(_ context.Context, txns ...matching.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range txns {
		m.transactions[t.ID] = t
	}
	return nil
}

// ListTransactions implements Repository.
func (m *MemoryStore) ListTransactions(ctx context.Context, userID string, c matching.Criteria) (matching.Result, error) {
	if err := ctx.Err(); err != nil {
		return matching.Result{}, err
	}

	m.mu.RLock()
	owned := make([]matching.Transaction, 0)
	for _, t := range m.transactions {
		if t.UserID == userID {
			owned = append(owned, t)
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(owned)
	return matching.Match(owned, c), nil
}

// GetTransaction implements Repository.
func (m *MemoryStore) GetTransaction(_ context.Context, userID, id string) (*matching.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transactions[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	return &t, nil
}

// ListMerchants implements Repository. Merchants are returned in insertion
// order.
func (m *MemoryStore) ListMerchants(_ context.Context) ([]matching.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]matching.Merchant, 0, len(m.merchantIDs))
	for _, id := range m.merchantIDs {
		out = append(out, m.merchants[id])
	}
	return out, nil
}

// GetMerchant implements Repository.
func (m *MemoryStore) GetMerchant(_ context.Context, id string) (*matching.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	merchant, ok := m.merchants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &merchant, nil
}

// FindMerchants implements Repository.
func (m *MemoryStore) FindMerchants(ctx context.Context, name string) ([]matching.Merchant, error) {
	all, err := m.ListMerchants(ctx)
	if err != nil {
		return nil, err
	}
	return filterMerchants(all, name), nil
}

// SaveDispute implements DisputeStore.
func (m *MemoryStore) SaveDispute(_ context.Context, d *Dispute) error {
	if d == nil || d.ID == "" {
		return newError("memory", "save_dispute", errMissingID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.disputes[d.ID] = *d
	return nil
}

// GetDispute implements DisputeStore.
func (m *MemoryStore) GetDispute(_ context.Context, id string) (*Dispute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.disputes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// ListDisputes implements DisputeStore.
func (m *MemoryStore) ListDisputes(_ context.Context, userID string) ([]Dispute, error) {
	m.mu.RLock()
	out := make([]Dispute, 0)
	for _, d := range m.disputes {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}

func sortNewestFirst(txns []matching.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
}

func filterMerchants(all []matching.Merchant, name string) []matching.Merchant {
	var out []matching.Merchant
	for _, merchant := range all {
		if merchant.MatchesName(name) {
			out = append(out, merchant)
		}
	}
	return out
}
