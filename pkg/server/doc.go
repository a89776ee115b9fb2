// Package server exposes the assistant over HTTP.
//
// # Routes
//
//	POST   /v1/turns          {"message": "..."} -> turn result
//	GET    /v1/history        the caller's redacted conversation
//	DELETE /v1/history        forget the caller's conversation
//	GET    /v1/tools          tool definitions
//	POST   /v1/tools/{name}   run one tool with JSON arguments
//
// The caller is identified by the X-User-ID header, which must pass
// identity validation. /v1/turns is mounted only when an Assistant is
// configured.
//
// A failed turn still returns its JSON body, whose reply is the message for
// the failure kind, with a status that reflects the kind: 429 when rate
// limited, 503 when the circuit is open or the request was cancelled and
// 502 otherwise.
//
// # Middleware
//
// Wrap applies, from the outside in: panic recovery, request ids
// (X-Request-ID), request logging and a request body limit.
//
// # Lifecycle
//
// Server.Start listens and serves until its context is cancelled, then
// shuts down gracefully within the configured timeout:
//
//	srv := server.New(server.ConfigFrom("api", cfg.Server), server.Wrap(mux, cfg.Server.MaxBodyBytes))
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server
