package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-splitpay/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// StatusError describes a non-2xx response. The error code carries the
// upstream status so retry policies can tell client errors from outages.
func StatusError(res Response, metadata map[string]any) error {
	meta := map[string]any{"status_code": res.StatusCode}
	for key, value := range metadata {
		meta[key] = value
	}
	message := fmt.Sprintf("upstream returned %d", res.StatusCode)
	if detail := upstreamErrorDetail(res.Body); detail != "" {
		message += ": " + detail
	}
	return transportError(message, statusCategory(res.StatusCode), res.StatusCode, meta)
}

func statusCategory(status int) goerrors.Category {
	switch {
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status >= 400 && status < 500:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryExternal
	}
}

// upstreamErrorDetail pulls a readable message out of the common error
// bodies: {"error":{"code","description"}}, {"error":"..."} and {"message":"..."}.
func upstreamErrorDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		if len(trimmed) > 200 {
			trimmed = trimmed[:200]
		}
		return trimmed
	}
	if len(envelope.Error) > 0 {
		var structured struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(envelope.Error, &structured); err == nil {
			parts := make([]string, 0, 2)
			if structured.Code != "" {
				parts = append(parts, structured.Code)
			}
			if structured.Description != "" {
				parts = append(parts, structured.Description)
			}
			if len(parts) > 0 {
				return strings.Join(parts, ": ")
			}
		}
		var plain string
		if err := json.Unmarshal(envelope.Error, &plain); err == nil && plain != "" {
			return plain
		}
	}
	return strings.TrimSpace(envelope.Message)
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ServiceErrorBadInput
	case goerrors.CategoryInternal:
		return core.ServiceErrorInternal
	default:
		return core.ServiceErrorResolutionFailed
	}
}
