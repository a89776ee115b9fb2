// Guardrail is the operator binary for the dispute assistant's safety
// layer.
//
// It runs the HTTP API with its rate limiter, circuit breaker, retry
// policy, PII redaction and tamper-evident audit log, and offers offline
// tools for the same components.
//
// Usage:
//
//	# Start the API, metrics endpoint and audit retention scheduler
//	guardrail serve --config config.yaml
//
//	# Redact personal data from text or stdin
//	guardrail redact "card 4111 1111 1111 1111, mail jane@example.com"
//	cat transcript.txt | guardrail redact --patterns-only
//
//	# Report detected personal data as JSON
//	guardrail detect "SSN 123-45-6789"
//
//	# Search a user's transactions with tolerance
//	guardrail match --user user_123 --amount 50 --date 2025-01-14
//
//	# Verify audit partitions and prune old ones
//	guardrail audit verify logs/audit_2025-01-15.jsonl
//	guardrail audit prune --retention-days 90
package main

func main() {
	Execute()
}
