// Package sanitize cleans user input before it reaches the model.
//
// Sanitize removes control characters that terminals and tokenizers treat
// specially, flags text that looks like a prompt-injection attempt, collapses
// runs of spaces and truncates oversized input. Findings are reported, not
// blocked: the assistant audits them as security events and still answers.
//
// IsOnTopic is a cheap keyword gate that keeps the assistant focused on
// transactions and disputes.
package sanitize
