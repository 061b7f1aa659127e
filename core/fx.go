package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
)

const (
	MarketSourceMulti    = "multi"
	MarketSourceIdentity = "identity"
)

// CompareFX quotes a fixed notional between two reference wallets and
// compares the network rate with a market rate. A missing market rate only
// degrades the result.
func (s *Service) CompareFX(ctx context.Context, req FXCompareRequest) (result FXComparison, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"from": req.From, "to": req.To}
	defer func() {
		if result.Market.Provider != "" {
			fields["market_provider"] = result.Market.Provider
		}
		s.observeOperation(ctx, startedAt, "compare_fx", err, fields)
	}()

	if s == nil {
		return FXComparison{}, fmt.Errorf("core: service is nil")
	}
	from := s.normalizeCurrency(req.From)
	to := s.normalizeCurrency(req.To)
	fields["from"], fields["to"] = from, to
	if from == "" {
		return FXComparison{}, s.mapError(ValidationError("from", "from currency is required"))
	}
	if to == "" {
		return FXComparison{}, s.mapError(ValidationError("to", "to currency is required"))
	}
	for _, code := range []string{from, to} {
		if _, ok := s.config.FX.Wallets[code]; !ok {
			return FXComparison{}, s.mapError(UnsupportedCurrencyError(code, s.SupportedCurrencies()))
		}
	}

	if missing := s.config.missingCredentials(); len(missing) > 0 {
		return FXComparison{}, s.mapError(ConfigurationError(
			"core: client identity is not configured: missing "+strings.Join(missing, ", "),
			missing...,
		))
	}

	notional := s.config.FX.NotionalMajor
	if notional <= 0 {
		notional = defaultFXNotionalMajor
	}
	if from == to {
		return s.identityComparison(ctx, from, notional)
	}

	marketCtx, cancelMarket := context.WithCancel(ctx)
	defer cancelMarket()
	var market MarketComparison
	wg := conc.NewWaitGroup()
	wg.Go(func() {
		market = s.lookupMarketRate(marketCtx, from, to)
	})

	ilp, sendMinor, ilpErr := s.quoteNetworkRate(ctx, from, to, notional)
	if ilpErr != nil {
		cancelMarket()
	}
	wg.Wait()
	if ilpErr != nil {
		return FXComparison{}, s.mapError(ilpErr)
	}

	result = FXComparison{
		From:      from,
		To:        to,
		SendMajor: notional,
		SendMinor: sendMinor,
		ILP:       ilp,
		Market:    market,
	}
	if market.Rate != nil && *market.Rate > 0 {
		delta, _ := decimal.NewFromFloat(ilp.Rate).
			Sub(decimal.NewFromFloat(*market.Rate)).
			Div(decimal.NewFromFloat(*market.Rate)).
			Mul(hundred).
			Float64()
		result.DeltaPct = &delta
	}
	return result, nil
}

// identityComparison answers a same-currency pair at par. Only the
// reference wallet is resolved, to scale the notional.
func (s *Service) identityComparison(ctx context.Context, code string, notional int64) (FXComparison, error) {
	wallet, err := s.resolver.Resolve(ctx, s.config.FX.Wallets[code])
	if err != nil {
		return FXComparison{}, s.mapError(err)
	}
	sent := AmountFor(wallet, MajorToMinor(notional, wallet.AssetScale))
	received := sent
	one, zero, source := 1.0, 0.0, MarketSourceIdentity
	return FXComparison{
		From:      code,
		To:        code,
		SendMajor: notional,
		SendMinor: sent.Value,
		ILP: ILPRate{
			Rate:          1,
			DebitAmount:   &sent,
			ReceiveAmount: &received,
		},
		Market:   MarketComparison{Rate: &one, Source: &source},
		DeltaPct: &zero,
	}, nil
}

// SupportedCurrencies lists the codes with a reference wallet, sorted.
func (s *Service) SupportedCurrencies() []string {
	if s == nil {
		return nil
	}
	codes := make([]string, 0, len(s.config.FX.Wallets))
	for code := range s.config.FX.Wallets {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func UnsupportedCurrencyError(code string, supported []string) *goerrors.Error {
	return ValidationError("currency", "unsupported currency "+code).
		WithMetadata(map[string]any{
			"currency":  code,
			"supported": append([]string(nil), supported...),
		})
}

func (s *Service) normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if alias, ok := s.config.FX.Aliases[code]; ok && strings.TrimSpace(alias) != "" {
		return strings.ToUpper(strings.TrimSpace(alias))
	}
	return code
}

// quoteNetworkRate runs the one-sided quoting pipeline: an open incoming
// payment at the to wallet and a fixed-debit quote from the from wallet.
func (s *Service) quoteNetworkRate(ctx context.Context, from string, to string, notional int64) (ILPRate, string, error) {
	wallets, err := s.resolver.ResolveAll(ctx, s.config.FX.Wallets[from], s.config.FX.Wallets[to])
	if err != nil {
		return ILPRate{}, "", err
	}
	sender, receiver := wallets[0], wallets[1]

	incomingToken, err := s.negotiator.RequestNonInteractive(ctx, receiver.AuthServer, IncomingPaymentAccess())
	if err != nil {
		return ILPRate{}, "", err
	}
	incoming, err := s.createIncomingPayment(ctx, receiver, incomingToken, nil)
	if err != nil {
		return ILPRate{}, "", err
	}
	quoteToken, err := s.negotiator.RequestNonInteractive(ctx, sender.AuthServer, QuoteAccess())
	if err != nil {
		return ILPRate{}, "", err
	}
	debit := AmountFor(sender, MajorToMinor(notional, sender.AssetScale))
	quote, err := s.createQuote(ctx, sender, quoteToken, incoming.ID, &debit)
	if err != nil {
		return ILPRate{}, "", err
	}

	rate, err := quoteRate(quote)
	if err != nil {
		return ILPRate{}, "", ResolutionError(err, "derive network rate", map[string]any{"quote_id": quote.ID})
	}
	return ILPRate{
		Rate:          rate,
		DebitAmount:   &quote.DebitAmount,
		ReceiveAmount: &quote.ReceiveAmount,
		QuoteID:       quote.ID,
	}, debit.Value, nil
}

// quoteRate is receive/debit, each scaled to major units.
func quoteRate(quote Quote) (float64, error) {
	debit, err := ScaledValue(quote.DebitAmount)
	if err != nil {
		return 0, err
	}
	receive, err := ScaledValue(quote.ReceiveAmount)
	if err != nil {
		return 0, err
	}
	if debit.IsZero() {
		return 0, fmt.Errorf("%w: quote debit amount is zero", ErrInvalidAmount)
	}
	rate, _ := receive.Div(debit).Float64()
	return rate, nil
}

func (s *Service) lookupMarketRate(ctx context.Context, from string, to string) MarketComparison {
	unavailable := MarketComparison{Error: MarketRateUnavailableError(nil).Message}
	if s.marketSource == nil {
		return unavailable
	}
	market, err := s.marketSource.MarketRate(ctx, from, to)
	if err == nil && market.Rate <= 0 {
		err = fmt.Errorf("core: market rate for %s/%s is not positive", from, to)
	}
	if err != nil {
		soft := MarketRateUnavailableError(err)
		s.logWarn(ctx, "market rate unavailable", map[string]any{
			"from":      from,
			"to":        to,
			"text_code": soft.TextCode,
			"error":     err.Error(),
		})
		return unavailable
	}
	rate, source := market.Rate, MarketSourceMulti
	return MarketComparison{
		Rate:     &rate,
		Source:   &source,
		Provider: market.Provider,
	}
}
