package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"disputedesk-hq/guardrail/pkg/identity"
)

// ErrUnknownTool is returned by Call for a name not in Definitions.
var ErrUnknownTool = errors.New("unknown tool")

// Definition describes a tool to the agent framework.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Definitions lists the tools Call accepts.
func Definitions() []Definition {
	return []Definition{
		{ToolFindTransactions, "Search the user's transactions by amount, date (YYYY-MM-DD), merchant_name, category or status, with tolerance."},
		{ToolGetTransaction, "Get one transaction by transaction_id."},
		{ToolSearchMerchants, "Search merchants by name or alias."},
		{ToolGetMerchant, "Get merchant details by merchant_id."},
		{ToolFlagDispute, "Flag a transaction for human review given transaction_id and complaint."},
		{ToolGetDisputeStatus, "Check the status of a dispute by dispute_id."},
		{ToolListDisputes, "List the user's disputes."},
	}
}

// Call decodes JSON arguments and runs the named tool. Unknown argument
// fields are rejected.
func (t *Tools) Call(ctx context.Context, id identity.Identity, name string, raw json.RawMessage) (any, error) {
	switch name {
	case ToolFindTransactions:
		var in FindTransactionsInput
		if err := decodeArgs(raw, &in); err != nil {
			return nil, err
		}
		return t.FindTransactions(ctx, id, in)

	case ToolGetTransaction:
		var in struct {
			TransactionID string `json:"transaction_id"`
		}
		if err := decodeArgs(raw, &in); err != nil {
			return nil, err
		}
		return t.GetTransaction(ctx, id, in.TransactionID)

	case ToolSearchMerchants:
		var in struct {
			Name string `json:"name"`
		}
		if err := decodeArgs(raw, &in); err != nil {
			return nil, err
		}
		return t.SearchMerchants(ctx, id, in.Name)

	case ToolGetMerchant:
		var in struct {
			MerchantID string `json:"merchant_id"`
		}
		if err := decodeArgs(raw, &in); err != nil {
			return nil, err
		}
		return t.GetMerchant(ctx, id, in.MerchantID)

	case ToolFlagDispute:
		var in FlagDisputeInput
		if err := decodeArgs(raw, &in); err != nil {
			return nil, err
		}
		return t.FlagDispute(ctx, id, in)

	case ToolGetDisputeStatus:
		var in struct {
			DisputeID string `json:"dispute_id"`
		}
		if err := decodeArgs(raw, &in); err != nil {
			return nil, err
		}
		return t.GetDisputeStatus(ctx, id, in.DisputeID)

	case ToolListDisputes:
		return t.ListDisputes(ctx, id)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}
