package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-splitpay/core"
)

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	mapped := core.MapError(err)
	status := core.HTTPStatus(mapped.Category)

	body := errorResponse{Error: mapped.Message, Code: mapped.TextCode}
	if supported, ok := mapped.Metadata["supported"].([]string); ok {
		body.Supported = supported
	}

	logger := a.logger.WithContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"status", status,
		"text_code", mapped.TextCode,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", args...)
	} else {
		logger.Warn("request rejected", args...)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
