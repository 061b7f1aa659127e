package query

import (
	"context"

	"github.com/goliatone/go-splitpay/core"
)

type FXReader interface {
	CompareFX(ctx context.Context, req core.FXCompareRequest) (core.FXComparison, error)
	SupportedCurrencies() []string
}

type CompareFXQuery struct {
	reader FXReader
}

func NewCompareFXQuery(reader FXReader) *CompareFXQuery {
	return &CompareFXQuery{reader: reader}
}

func (q *CompareFXQuery) Query(ctx context.Context, msg CompareFXMessage) (core.FXComparison, error) {
	if q == nil || q.reader == nil {
		return core.FXComparison{}, queryDependencyError("query: fx reader is required")
	}
	return q.reader.CompareFX(ctx, msg.Request)
}

type SupportedCurrenciesQuery struct {
	reader FXReader
}

func NewSupportedCurrenciesQuery(reader FXReader) *SupportedCurrenciesQuery {
	return &SupportedCurrenciesQuery{reader: reader}
}

func (q *SupportedCurrenciesQuery) Query(context.Context, SupportedCurrenciesMessage) ([]string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: fx reader is required")
	}
	return q.reader.SupportedCurrencies(), nil
}
