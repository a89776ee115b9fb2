// Package openai implements llm.Invoker against an OpenAI-compatible chat
// completions endpoint.
//
// The client makes exactly one HTTP request per Invoke. Retries, rate
// limiting and circuit breaking belong to the caller's resilience.Guard, so
// the client only classifies failures:
//
//   - 401 and 403 become *AuthError
//   - 429 becomes *RateLimitError carrying Retry-After
//   - other non-2xx statuses become *StatusError
//   - undecodable bodies become *ParseError
//
// Retryable reports which of these are worth another attempt and is meant
// to be used as the retry policy's Retryable function:
//
//	client := openai.New(openai.Config{
//	    BaseURL: cfg.Assistant.Endpoint,
//	    APIKey:  cfg.Assistant.APIKey,
//	    Model:   cfg.Assistant.Model,
//	    Timeout: cfg.Assistant.Timeout,
//	})
//	retrier := retry.New(retry.Policy{
//	    MaxAttempts: 3,
//	    BackoffBase: 2,
//	    Retryable:   openai.Retryable,
//	})
package openai
