package core

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Checkout starts a two-party checkout. The customer pays the merchant and
// the platform their shares of AmountMinor; the call returns once the
// consent redirect exists and the flow is parked under its nonce.
//
// Steps only move forward. Incoming payments or quotes created before a
// failing step are left in place on the network.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (result CheckoutResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"customer_id":  req.CustomerID,
		"merchant_id":  req.MerchantID,
		"amount_minor": req.AmountMinor,
	}
	defer func() {
		if result.Nonce != "" {
			fields["nonce"] = result.Nonce
			fields["merchant_share"] = result.MerchantShare
			fields["platform_share"] = result.PlatformShare
			fields["asset_code"] = result.DebitTotal.AssetCode
		}
		s.observeOperation(ctx, startedAt, "checkout", err, fields)
	}()

	if s == nil {
		return CheckoutResult{}, fmt.Errorf("core: service is nil")
	}
	req, err = s.normalizeCheckoutRequest(req)
	if err != nil {
		return CheckoutResult{}, s.mapError(err)
	}
	merchantShare, platformShare, err := SplitShares(req.AmountMinor, *req.Split)
	if err != nil {
		return CheckoutResult{}, s.mapError(err)
	}

	s.logCheckoutStep(ctx, "resolve wallets", fields)
	wallets, err := s.resolver.ResolveAll(ctx, req.CustomerID, req.MerchantID, s.config.PlatformWalletAddress)
	if err != nil {
		return CheckoutResult{}, s.mapError(err)
	}
	customer, merchant, platform := wallets[0], wallets[1], wallets[2]

	s.logCheckoutStep(ctx, "request incoming payment grants", fields)
	var merchantToken, platformToken AccessToken
	err = fanOut(ctx,
		func(ctx context.Context) error {
			token, err := s.negotiator.RequestNonInteractive(ctx, merchant.AuthServer, IncomingPaymentAccess())
			merchantToken = token
			return err
		},
		func(ctx context.Context) error {
			token, err := s.negotiator.RequestNonInteractive(ctx, platform.AuthServer, IncomingPaymentAccess())
			platformToken = token
			return err
		},
	)
	if err != nil {
		return CheckoutResult{}, s.mapError(err)
	}

	s.logCheckoutStep(ctx, "create incoming payments", fields)
	var merchantIncoming, platformIncoming IncomingPayment
	err = fanOut(ctx,
		func(ctx context.Context) error {
			amount := AmountFor(merchant, big.NewInt(merchantShare))
			payment, err := s.createIncomingPayment(ctx, merchant, merchantToken, &amount)
			merchantIncoming = payment
			return err
		},
		func(ctx context.Context) error {
			amount := AmountFor(platform, big.NewInt(platformShare))
			payment, err := s.createIncomingPayment(ctx, platform, platformToken, &amount)
			platformIncoming = payment
			return err
		},
	)
	if err != nil {
		return CheckoutResult{}, s.mapError(err)
	}

	s.logCheckoutStep(ctx, "request quote grant", fields)
	quoteToken, err := s.negotiator.RequestNonInteractive(ctx, customer.AuthServer, QuoteAccess())
	if err != nil {
		return CheckoutResult{}, s.mapError(err)
	}

	s.logCheckoutStep(ctx, "create quotes", fields)
	var merchantQuote, platformQuote Quote
	err = fanOut(ctx,
		func(ctx context.Context) error {
			quote, err := s.createQuote(ctx, customer, quoteToken, merchantIncoming.ID, nil)
			merchantQuote = quote
			return err
		},
		func(ctx context.Context) error {
			quote, err := s.createQuote(ctx, customer, quoteToken, platformIncoming.ID, nil)
			platformQuote = quote
			return err
		},
	)
	if err != nil {
		return CheckoutResult{}, s.mapError(err)
	}

	debitTotal, err := SumAmounts(merchantQuote.DebitAmount, platformQuote.DebitAmount)
	if err != nil {
		return CheckoutResult{}, s.mapError(ResolutionError(err, "sum quote debit amounts", nil))
	}

	s.logCheckoutStep(ctx, "request outgoing payment grant", fields)
	interactive, err := s.negotiator.RequestInteractive(ctx,
		customer.AuthServer,
		OutgoingPaymentAccess(customer, debitTotal),
		s.config.BaseURL,
	)
	if err != nil {
		return CheckoutResult{}, s.mapError(err)
	}

	pending := PendingCheckout{
		Nonce: interactive.Nonce,
		Payer: customer,
		Legs: []CheckoutLeg{
			{Role: LegRoleMerchant, Receiver: merchant, Quote: merchantQuote},
			{Role: LegRolePlatform, Receiver: platform, Quote: platformQuote},
		},
		Continuation: interactive.Continuation,
	}
	if err := s.pendingStore.Put(ctx, pending); err != nil {
		return CheckoutResult{}, s.mapError(err)
	}

	return CheckoutResult{
		RedirectURL:   interactive.RedirectURL,
		Nonce:         interactive.Nonce,
		MerchantShare: merchantShare,
		PlatformShare: platformShare,
		DebitTotal:    debitTotal,
	}, nil
}

func (s *Service) normalizeCheckoutRequest(req CheckoutRequest) (CheckoutRequest, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.MerchantID = strings.TrimSpace(req.MerchantID)
	if req.CustomerID == "" {
		return CheckoutRequest{}, ValidationError("customerId", "customerId is required")
	}
	if req.MerchantID == "" {
		return CheckoutRequest{}, ValidationError("merchantId", "merchantId is required")
	}
	if missing := s.config.missingCredentials(); len(missing) > 0 {
		return CheckoutRequest{}, ConfigurationError(
			"core: client identity is not configured: missing "+strings.Join(missing, ", "),
			missing...,
		)
	}
	if strings.TrimSpace(s.config.BaseURL) == "" {
		return CheckoutRequest{}, ConfigurationError("core: base url is not configured", "base_url")
	}
	if req.AmountMinor <= 0 {
		return CheckoutRequest{}, ValidationError("amountMinor", "amountMinor must be a positive integer")
	}
	if req.Split == nil {
		split := DefaultSplitRatio()
		req.Split = &split
	}
	if err := ValidateSplit(*req.Split); err != nil {
		return CheckoutRequest{}, err
	}
	return req, nil
}

func (s *Service) createIncomingPayment(ctx context.Context, receiver WalletAddress, token AccessToken, amount *Amount) (IncomingPayment, error) {
	return callUpstreamOnce(ctx, s, "create incoming payment",
		map[string]any{"wallet_address": receiver.ID},
		func(ctx context.Context) (IncomingPayment, error) {
			return s.network.CreateIncomingPayment(ctx, receiver.ResourceServer, token.Value, IncomingPaymentInput{
				WalletAddress:  receiver.ID,
				IncomingAmount: amount,
			})
		},
	)
}

func (s *Service) createQuote(ctx context.Context, payer WalletAddress, token AccessToken, receiver string, debit *Amount) (Quote, error) {
	return callUpstream(ctx, s, "create quote",
		map[string]any{"wallet_address": payer.ID, "receiver": receiver},
		func(ctx context.Context) (Quote, error) {
			return s.network.CreateQuote(ctx, payer.ResourceServer, token.Value, QuoteInput{
				WalletAddress: payer.ID,
				Receiver:      receiver,
				Method:        QuoteMethodILP,
				DebitAmount:   debit,
			})
		},
	)
}

func (s *Service) createOutgoingPayment(ctx context.Context, payer WalletAddress, token AccessToken, quote Quote) (OutgoingPayment, error) {
	return callUpstreamOnce(ctx, s, "create outgoing payment",
		map[string]any{"wallet_address": payer.ID, "quote_id": quote.ID},
		func(ctx context.Context) (OutgoingPayment, error) {
			return s.network.CreateOutgoingPayment(ctx, payer.ResourceServer, token.Value, OutgoingPaymentInput{
				WalletAddress: payer.ID,
				QuoteID:       quote.ID,
			})
		},
	)
}

func (s *Service) logCheckoutStep(ctx context.Context, step string, fields map[string]any) {
	stepFields := cloneFields(fields)
	stepFields["step"] = step
	s.logDebug(ctx, "checkout step", stepFields)
}
