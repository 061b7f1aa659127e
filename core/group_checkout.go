package core

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// GroupCheckout splits TotalAmountMinor evenly across payers and starts an
// independent consent flow for each. Payers consent separately, so a group
// can finish with only some payers paid.
func (s *Service) GroupCheckout(ctx context.Context, req GroupCheckoutRequest) (result GroupCheckoutResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"merchant_id":        req.MerchantID,
		"total_amount_minor": req.TotalAmountMinor,
		"payer_count":        len(req.Payers),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "group_checkout", err, fields)
	}()

	if s == nil {
		return GroupCheckoutResult{}, fmt.Errorf("core: service is nil")
	}
	req, err = s.normalizeGroupCheckoutRequest(req)
	if err != nil {
		return GroupCheckoutResult{}, s.mapError(err)
	}
	shares, err := SplitEven(req.TotalAmountMinor, len(req.Payers))
	if err != nil {
		return GroupCheckoutResult{}, s.mapError(err)
	}

	s.logCheckoutStep(ctx, "resolve wallets", fields)
	wallets, err := s.resolver.ResolveAll(ctx, append([]string{req.MerchantID}, req.Payers...)...)
	if err != nil {
		return GroupCheckoutResult{}, s.mapError(err)
	}
	merchant, payers := wallets[0], wallets[1:]
	fields["asset_code"] = merchant.AssetCode

	s.logCheckoutStep(ctx, "request incoming payment grant", fields)
	incomingToken, err := s.negotiator.RequestNonInteractive(ctx, merchant.AuthServer, IncomingPaymentAccess())
	if err != nil {
		return GroupCheckoutResult{}, s.mapError(err)
	}

	s.logCheckoutStep(ctx, "create incoming payments", fields)
	incoming := make([]IncomingPayment, len(payers))
	err = fanOutEach(ctx, len(payers), func(ctx context.Context, i int) error {
		amount := AmountFor(merchant, big.NewInt(shares[i]))
		payment, err := s.createIncomingPayment(ctx, merchant, incomingToken, &amount)
		if err != nil {
			return err
		}
		incoming[i] = payment
		return nil
	})
	if err != nil {
		return GroupCheckoutResult{}, s.mapError(err)
	}

	s.logCheckoutStep(ctx, "start payer consent flows", fields)
	results := make([]PayerCheckout, len(payers))
	err = fanOutEach(ctx, len(payers), func(ctx context.Context, i int) error {
		checkout, err := s.startPayerCheckout(ctx, payers[i], merchant, incoming[i])
		if err != nil {
			return err
		}
		checkout.Payer = payers[i].ID
		checkout.ShareMinor = shares[i]
		results[i] = checkout
		return nil
	})
	if err != nil {
		return GroupCheckoutResult{}, s.mapError(err)
	}

	return GroupCheckoutResult{
		Merchant:   merchant.ID,
		TotalMinor: req.TotalAmountMinor,
		Count:      len(results),
		Results:    results,
	}, nil
}

func (s *Service) startPayerCheckout(ctx context.Context, payer WalletAddress, merchant WalletAddress, incoming IncomingPayment) (PayerCheckout, error) {
	quoteToken, err := s.negotiator.RequestNonInteractive(ctx, payer.AuthServer, QuoteAccess())
	if err != nil {
		return PayerCheckout{}, err
	}
	quote, err := s.createQuote(ctx, payer, quoteToken, incoming.ID, nil)
	if err != nil {
		return PayerCheckout{}, err
	}
	interactive, err := s.negotiator.RequestInteractive(ctx,
		payer.AuthServer,
		OutgoingPaymentAccess(payer, quote.DebitAmount),
		s.config.BaseURL,
	)
	if err != nil {
		return PayerCheckout{}, err
	}
	err = s.pendingStore.Put(ctx, PendingCheckout{
		Nonce:        interactive.Nonce,
		Payer:        payer,
		Legs:         []CheckoutLeg{{Role: LegRoleShare, Receiver: merchant, Quote: quote}},
		Continuation: interactive.Continuation,
	})
	if err != nil {
		return PayerCheckout{}, err
	}
	return PayerCheckout{
		RedirectURL: interactive.RedirectURL,
		Nonce:       interactive.Nonce,
	}, nil
}

func (s *Service) normalizeGroupCheckoutRequest(req GroupCheckoutRequest) (GroupCheckoutRequest, error) {
	req.MerchantID = strings.TrimSpace(req.MerchantID)
	if req.MerchantID == "" {
		return GroupCheckoutRequest{}, ValidationError("merchantId", "merchantId is required")
	}
	if len(req.Payers) == 0 {
		return GroupCheckoutRequest{}, ValidationError("payers", "payers must be a non-empty list")
	}
	payers := make([]string, len(req.Payers))
	for i, payer := range req.Payers {
		payer = strings.TrimSpace(payer)
		if payer == "" {
			return GroupCheckoutRequest{}, ValidationError("payers", fmt.Sprintf("payers[%d] is required", i))
		}
		payers[i] = payer
	}
	req.Payers = payers
	if req.TotalAmountMinor <= 0 {
		return GroupCheckoutRequest{}, ValidationError("totalAmountMinor", "totalAmountMinor must be a positive integer")
	}
	// A zero share would ask the merchant for an empty incoming payment.
	if req.TotalAmountMinor < int64(len(req.Payers)) {
		return GroupCheckoutRequest{}, ValidationError("totalAmountMinor", "totalAmountMinor must be at least one minor unit per payer")
	}
	if missing := s.config.missingCredentials(); len(missing) > 0 {
		return GroupCheckoutRequest{}, ConfigurationError(
			"core: client identity is not configured: missing "+strings.Join(missing, ", "),
			missing...,
		)
	}
	if strings.TrimSpace(s.config.BaseURL) == "" {
		return GroupCheckoutRequest{}, ConfigurationError("core: base url is not configured", "base_url")
	}
	return req, nil
}
