package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-splitpay/core"
)

var (
	_ gocmd.Querier[CompareFXMessage, core.FXComparison]   = (*CompareFXQuery)(nil)
	_ gocmd.Querier[SupportedCurrenciesMessage, []string] = (*SupportedCurrenciesQuery)(nil)
)
