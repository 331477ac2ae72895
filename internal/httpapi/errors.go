package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/leadsweep/leadsweep/internal/collector"
)

// Error codes the external layer can dispatch on. CodeSessionClosed is the
// distinguished retryable-by-operator condition.
const (
	CodeSessionClosed  = "session_closed"
	CodeInvalidRequest = "invalid_request"
	CodeBusy           = "busy"
	CodeNotFound       = "not_found"
	CodeInternal       = "internal_error"
)

// APIError is the structured failure envelope.
type APIError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	// Partial carries leads already captured before a fatal error, so a
	// late-stage session loss does not discard the run's work.
	Partial *PartialResult `json:"partial,omitempty"`
}

// PartialResult is the accumulated state attached to a structured failure.
type PartialResult struct {
	TotalLeads int              `json:"total_leads"`
	Passes     int              `json:"passes"`
	Leads      []collector.Lead `json:"leads"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, partial *PartialResult) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Partial = partial
	writeJSON(w, status, e)
}
