package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ServiceErrorBadInput              = "SPLITPAY_BAD_INPUT"
	ServiceErrorConfiguration         = "SPLITPAY_CONFIGURATION"
	ServiceErrorResolutionFailed      = "SPLITPAY_RESOLUTION_FAILED"
	ServiceErrorFlowNotFound          = "SPLITPAY_FLOW_NOT_FOUND"
	ServiceErrorMarketRateUnavailable = "SPLITPAY_MARKET_RATE_UNAVAILABLE"
	ServiceErrorInternal              = "SPLITPAY_INTERNAL_ERROR"
)

// ConfigurationError reports missing identity or credential material. It is
// always raised before any network call.
func ConfigurationError(message string, missing ...string) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ServiceErrorConfiguration)
	if len(missing) > 0 {
		err.WithMetadata(map[string]any{"missing": append([]string(nil), missing...)})
	}
	return err
}

func ValidationError(field string, message string) *goerrors.Error {
	return goerrors.NewValidation(message, goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(ServiceErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

// ResolutionError wraps a failed upstream call. The upstream message is kept
// and the category is always external, whatever the source reported.
func ResolutionError(source error, step string, metadata map[string]any) *goerrors.Error {
	message := "core: " + strings.TrimSpace(step) + " failed"
	if source != nil {
		message += ": " + upstreamMessage(source)
	}
	err := goerrors.New(message, goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(ServiceErrorResolutionFailed)
	err.Source = source
	meta := map[string]any{"step": step}
	for key, value := range metadata {
		meta[key] = value
	}
	return err.WithMetadata(meta)
}

// FlowNotFoundError covers unknown, consumed, and expired nonces alike.
func FlowNotFoundError(nonce string) *goerrors.Error {
	err := goerrors.New("core: checkout flow not found", goerrors.CategoryNotFound).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ServiceErrorFlowNotFound).
		WithMetadata(map[string]any{"nonce": nonce})
	err.Source = ErrPendingCheckoutNotFound
	return err
}

func MarketRateUnavailableError(source error) *goerrors.Error {
	err := goerrors.New("market-rate-unavailable", goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(ServiceErrorMarketRateUnavailable).
		WithSeverity(goerrors.SeverityWarning)
	err.Source = source
	return err
}

func IsTextCode(err error, textCode string) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCode
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}
	if errors.Is(err, ErrPendingCheckoutNotFound) {
		return FlowNotFoundError("")
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not configured"):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ServiceErrorConfiguration)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must be"):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ServiceErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	if mapped.Category == goerrors.CategoryInternal {
		mapped.TextCode = ServiceErrorInternal
	}
	return ensureServiceErrorEnvelope(mapped)
}

func newServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = HTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryNotFound:
		return ServiceErrorFlowNotFound
	case goerrors.CategoryExternal:
		return ServiceErrorResolutionFailed
	default:
		return ServiceErrorInternal
	}
}

// HTTPStatus maps an error category to the status the API surfaces.
// Missing flows are server errors, not 404s.
func HTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// MapError converts any error into the service envelope.
func MapError(err error) *goerrors.Error {
	return serviceErrorMapper(err)
}

func upstreamMessage(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && strings.TrimSpace(rich.Message) != "" {
		return rich.Message
	}
	return err.Error()
}
