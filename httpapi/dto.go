package httpapi

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/goliatone/go-splitpay/core"
	"github.com/shopspring/decimal"
)

const defaultCheckoutAmountMinor int64 = 10000

// minorAmount accepts a JSON number or a numeric string. Parsing is deferred
// so that a malformed amount is reported in its turn, after the wallet
// address checks.
type minorAmount struct {
	raw     string
	present bool
}

func (m *minorAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = minorAmount{}
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		raw = text
	}
	*m = minorAmount{raw: strings.TrimSpace(raw), present: true}
	return nil
}

// Int64 returns the amount, or fallback when the field was omitted. ok is
// false for anything that is not a positive whole number.
func (m minorAmount) Int64(fallback int64) (int64, bool) {
	if !m.present {
		return fallback, fallback > 0
	}
	value, err := decimal.NewFromString(m.raw)
	if err != nil || !value.IsInteger() || !value.IsPositive() {
		return 0, false
	}
	if value.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, false
	}
	return value.IntPart(), true
}

type splitBody struct {
	MerchantPct *float64 `json:"merchantPct"`
	PlatformPct *float64 `json:"platformPct"`
}

func (s *splitBody) ratio() core.SplitRatio {
	if s == nil {
		return core.DefaultSplitRatio()
	}
	return core.SplitRatio{
		MerchantPct: pctOrNaN(s.MerchantPct),
		PlatformPct: pctOrNaN(s.PlatformPct),
	}
}

func pctOrNaN(value *float64) float64 {
	if value == nil {
		return math.NaN()
	}
	return *value
}

type checkoutBody struct {
	CustomerID      string      `json:"customerId"`
	CustomerAddress string      `json:"customerAddress"`
	MerchantID      string      `json:"merchantId"`
	MerchantAddress string      `json:"merchantAddress"`
	AmountMinor     minorAmount `json:"amountMinor"`
	Split           *splitBody  `json:"split"`
}

func (b checkoutBody) customer() string {
	return firstNonEmpty(b.CustomerID, b.CustomerAddress)
}

func (b checkoutBody) merchant() string {
	return firstNonEmpty(b.MerchantID, b.MerchantAddress)
}

type checkoutResponse struct {
	RedirectURL string `json:"redirectUrl"`
	Nonce       string `json:"nonce"`
}

type groupCheckoutBody struct {
	MerchantID       string      `json:"merchantId"`
	MerchantAddress  string      `json:"merchantAddress"`
	TotalAmountMinor minorAmount `json:"totalAmountMinor"`
	Payers           []string    `json:"payers"`
}

type payerCheckoutResponse struct {
	Payer       string `json:"payer"`
	ShareMinor  int64  `json:"shareMinor"`
	RedirectURL string `json:"redirectUrl"`
	Nonce       string `json:"nonce"`
}

type groupCheckoutResponse struct {
	Merchant   string                  `json:"merchant"`
	TotalMinor int64                   `json:"totalMinor"`
	Count      int                     `json:"count"`
	Results    []payerCheckoutResponse `json:"results"`
}

func newGroupCheckoutResponse(result core.GroupCheckoutResult) groupCheckoutResponse {
	out := groupCheckoutResponse{
		Merchant:   result.Merchant,
		TotalMinor: result.TotalMinor,
		Count:      result.Count,
		Results:    make([]payerCheckoutResponse, 0, len(result.Results)),
	}
	for _, item := range result.Results {
		out.Results = append(out.Results, payerCheckoutResponse{
			Payer:       item.Payer,
			ShareMinor:  item.ShareMinor,
			RedirectURL: item.RedirectURL,
			Nonce:       item.Nonce,
		})
	}
	return out
}

type callbackResponse struct {
	Status           string                 `json:"status"`
	Payer            string                 `json:"payer"`
	OutgoingPayments []core.OutgoingPayment `json:"outgoingPayments"`
}

func newCallbackResponse(result core.CallbackResult) callbackResponse {
	payments := result.OutgoingPayments
	if payments == nil {
		payments = []core.OutgoingPayment{}
	}
	return callbackResponse{
		Status:           result.Status,
		Payer:            result.Payer,
		OutgoingPayments: payments,
	}
}

type fxBody struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ilpResponse struct {
	Rate          float64      `json:"rate"`
	DebitAmount   *core.Amount `json:"debitAmount"`
	ReceiveAmount *core.Amount `json:"receiveAmount"`
	QuoteID       string       `json:"quoteId"`
}

// marketResponse keeps rate and source as explicit nulls when no market
// rate could be found.
type marketResponse struct {
	Rate     *float64 `json:"rate"`
	Source   *string  `json:"source"`
	Provider string   `json:"provider,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type fxResponse struct {
	From      string         `json:"from"`
	To        string         `json:"to"`
	SendMajor int64          `json:"sendMajor"`
	SendMinor string         `json:"sendMinor"`
	ILP       ilpResponse    `json:"ilp"`
	Market    marketResponse `json:"market"`
	DeltaPct  *float64       `json:"deltaPct"`
}

func newFXResponse(result core.FXComparison) fxResponse {
	return fxResponse{
		From:      result.From,
		To:        result.To,
		SendMajor: result.SendMajor,
		SendMinor: result.SendMinor,
		ILP: ilpResponse{
			Rate:          result.ILP.Rate,
			DebitAmount:   result.ILP.DebitAmount,
			ReceiveAmount: result.ILP.ReceiveAmount,
			QuoteID:       result.ILP.QuoteID,
		},
		Market: marketResponse{
			Rate:     result.Market.Rate,
			Source:   result.Market.Source,
			Provider: result.Market.Provider,
			Error:    result.Market.Error,
		},
		DeltaPct: result.DeltaPct,
	}
}

type currenciesResponse struct {
	Supported []string `json:"supported"`
}

type healthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

type errorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code,omitempty"`
	Supported []string `json:"supported,omitempty"`
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
