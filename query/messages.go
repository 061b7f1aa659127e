package query

import (
	"strings"

	"github.com/goliatone/go-splitpay/core"
)

const (
	TypeCompareFX           = "splitpay.query.fx.compare"
	TypeSupportedCurrencies = "splitpay.query.fx.currencies"
)

type CompareFXMessage struct {
	Request core.FXCompareRequest
}

func (CompareFXMessage) Type() string { return TypeCompareFX }

func (m CompareFXMessage) Validate() error {
	if strings.TrimSpace(m.Request.From) == "" {
		return queryValidationError("from", "from currency is required")
	}
	if strings.TrimSpace(m.Request.To) == "" {
		return queryValidationError("to", "to currency is required")
	}
	return nil
}

type SupportedCurrenciesMessage struct{}

func (SupportedCurrenciesMessage) Type() string { return TypeSupportedCurrencies }

func (SupportedCurrenciesMessage) Validate() error { return nil }
