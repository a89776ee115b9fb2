// Package assistant runs one user turn of the dispute-resolution chat and
// answers the lookups the model may request.
//
// # Turn Pipeline
//
// HandleTurn applies the guardrails in a fixed order:
//
//  1. Sanitize the input and audit any injection findings as a security event
//  2. Answer off-topic messages with a canned reply without calling the model
//  3. Audit the user input, then redact it
//  4. Audit the outgoing request and call the model through llm.Guarded
//  5. On failure, classify the error, audit a security event and return the
//     user-facing message for that failure kind together with the error
//  6. Redact the reply, audit it and append both sides to the user's history
//
// Every audit entry written during one turn carries the same turn_id.
//
// # Tools
//
// Tools implements the operations exposed to the model: transaction search
// with tolerance matching, transaction and merchant lookup, and dispute
// filing and status. Each call is scoped to the caller's identity, audited
// with LogToolCall and traced as a child span of the turn.
//
//	tools := assistant.NewTools(st, st, writer, cfg.Matching)
//	out, err := tools.FindTransactions(ctx, id, assistant.FindTransactionsInput{
//	    MerchantName: "coffee",
//	})
package assistant
