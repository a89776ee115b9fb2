// Package audit writes the tamper-evident audit trail of user turns.
//
// # Format
//
// Entries are appended to one JSON Lines file per calendar day,
// audit_YYYY-MM-DD.jsonl. Every entry carries:
//
//	id         entry id (UUID)
//	timestamp  wall-clock time, RFC 3339
//	user_hash  12 hex characters of SHA-256 of the user id, or "anonymous"
//	event      user_input, llm_request, llm_response, tool_call,
//	           dispute_flagged or security
//	severity   optional: info, warning, error or critical
//	prev_hash  hash of the previous entry in the same file ("" for the first)
//	hash       SHA-256 of prev_hash followed by the canonical JSON of the
//	           entry without its hash field
//
// Free-text payload values pass through the PII pattern pass (and the entity
// pass when enabled) and sensitive keys are masked before anything touches
// disk. Verify recomputes the chain of a file and reports the first entry
// that does not match.
//
// # Failure handling
//
// Log never returns an error: a failed write is reported as a warning on the
// process logger so auditing cannot break a user-facing operation. Write is
// the error-returning form for callers that need to know.
//
// # Retention
//
// Pruner removes partitions older than the retention period, and Scheduler
// runs it on a cron expression.
package audit
