package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"disputedesk-hq/guardrail/pkg/assistant"
	"disputedesk-hq/guardrail/pkg/identity"
	"disputedesk-hq/guardrail/pkg/llm"
	"disputedesk-hq/guardrail/pkg/resilience"
)

// UserIDHeader identifies the end user of a request.
const UserIDHeader = "X-User-ID"

// API serves the assistant and its tools.
type API struct {
	assistant *assistant.Assistant
	tools     *assistant.Tools
	logger    *slog.Logger
}

// NewAPI creates the API. A nil assistant leaves /v1/turns and the history
// routes unmounted; nil tools leave the tool routes unmounted.
func NewAPI(a *assistant.Assistant, tools *assistant.Tools) *API {
	return &API{
		assistant: a,
		tools:     tools,
		logger:    slog.Default().With("component", "server.api"),
	}
}

// Register mounts the API routes on mux.
func (api *API) Register(mux *http.ServeMux) {
	if api.assistant != nil {
		mux.HandleFunc("POST /v1/turns", api.handleTurn)
		mux.HandleFunc("GET /v1/history", api.handleHistory)
		mux.HandleFunc("DELETE /v1/history", api.handleClearHistory)
	}
	if api.tools != nil {
		mux.HandleFunc("GET /v1/tools", api.handleDefinitions)
		mux.HandleFunc("POST /v1/tools/{name}", api.handleTool)
	}
}

// TurnRequest is the body of POST /v1/turns.
type TurnRequest struct {
	Message string `json:"message"`
}

// TurnResponse is the body returned for a turn.
type TurnResponse struct {
	TurnID     string   `json:"turn_id"`
	Reply      string   `json:"reply"`
	Outcome    string   `json:"outcome"`
	Warnings   []string `json:"warnings,omitempty"`
	Suspicious bool     `json:"suspicious,omitempty"`
	Model      string   `json:"model,omitempty"`
	TokensUsed int      `json:"tokens_used,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (api *API) handleTurn(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	res, err := api.assistant.HandleTurn(r.Context(), id, req.Message)
	if res == nil {
		api.logger.ErrorContext(r.Context(), "turn rejected", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred. Please try again later.")
		return
	}

	writeJSON(w, statusForKind(res.Kind), TurnResponse{
		TurnID:     res.TurnID,
		Reply:      res.Reply,
		Outcome:    res.Outcome,
		Warnings:   res.Warnings,
		Suspicious: res.Suspicious,
		Model:      res.Model,
		TokensUsed: res.TokensUsed,
	})
}

func (api *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	history := api.assistant.History(id)
	if history == nil {
		history = []llm.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": history})
}

func (api *API) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	api.assistant.ClearHistory(id)
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) handleDefinitions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": assistant.Definitions()})
}

func (api *API) handleTool(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	out, err := api.tools.Call(r.Context(), id, r.PathValue("name"), raw)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, assistant.ErrUnknownTool):
		writeError(w, http.StatusNotFound, "unknown_tool", err.Error())
	case errors.Is(err, assistant.ErrInvalidArgument), errors.Is(err, identity.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		api.logger.ErrorContext(r.Context(), "tool call failed", "tool", r.PathValue("name"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "The tool could not complete the request.")
	}
}

func callerIdentity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id := identity.New(r.Header.Get(UserIDHeader))
	if err := id.Validate(); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_user", err.Error())
		return id, false
	}
	return id, true
}

func statusForKind(kind resilience.ErrorKind) int {
	switch kind {
	case resilience.KindNone:
		return http.StatusOK
	case resilience.KindRateLimited:
		return http.StatusTooManyRequests
	case resilience.KindCircuitOpen, resilience.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Type: kind, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
