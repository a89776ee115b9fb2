// Package logging configures the process-wide slog logger.
//
// # Overview
//
// New builds a *slog.Logger from the telemetry.logging section of the
// configuration:
//   - JSON or text output at a minimum level
//   - Optional source locations
//   - PII redaction of every string attribute before it is written
//   - Turn and user correlation fields taken from the context
//
// Components keep calling slog.Default().With("component", ...) and pick up
// the handler once Setup has installed it.
//
// # Usage
//
//	logger, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	logger.InfoContext(ctx, "turn handled", "card", "4111 1111 1111 1111")
//	// card="[REDACTED_CREDIT_CARD]"
//
// # PII Redaction
//
// Redaction runs the deterministic pattern pass from package pii only. The
// entity pass is too slow for the logging hot path; the audit log, which
// holds user text, applies both passes itself.
//
// Attributes whose key names a secret (password, token, api_key, ssn,
// card_number and similar) are masked completely regardless of value.
package logging
