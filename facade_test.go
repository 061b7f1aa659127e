package splitpay

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-splitpay/core"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	facade, err := NewFacade(&stubFacadeService{})
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.Checkout == nil || commands.GroupCheckout == nil || commands.CompleteCallback == nil || commands.SweepPending == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.CompareFX == nil || queries.SupportedCurrencies == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected service requirement")
	}
}

func TestFacade_CheckoutReturnsCommandResult(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	result, err := facade.Checkout(context.Background(), core.CheckoutRequest{
		CustomerID:  "https://wallet.test/alice",
		MerchantID:  "https://wallet.test/shop",
		AmountMinor: 10000,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.Nonce != "nonce-1" || result.RedirectURL != "https://auth.test/interact" {
		t.Fatalf("unexpected checkout result %#v", result)
	}
	if svc.checkoutCalls != 1 {
		t.Fatalf("expected one checkout delegation, got %d", svc.checkoutCalls)
	}
}

func TestFacade_RejectsInvalidInputBeforeService(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	ctx := context.Background()

	_, err = facade.Checkout(ctx, core.CheckoutRequest{CustomerID: "a", MerchantID: "b"})
	if !core.IsTextCode(err, core.ServiceErrorBadInput) {
		t.Fatalf("expected bad input for missing amount, got %v", err)
	}
	_, err = facade.GroupCheckout(ctx, core.GroupCheckoutRequest{MerchantID: "m", TotalAmountMinor: 1, Payers: []string{"a", "b"}})
	if err == nil {
		t.Fatalf("expected total smaller than payer count to be rejected")
	}
	_, err = facade.CompleteCallback(ctx, core.CallbackRequest{Nonce: "n"})
	if err == nil {
		t.Fatalf("expected missing interact_ref to be rejected")
	}
	_, err = facade.CompareFX(ctx, core.FXCompareRequest{From: "USD"})
	if err == nil {
		t.Fatalf("expected missing to currency to be rejected")
	}
	if svc.checkoutCalls+svc.groupCalls+svc.callbackCalls+svc.fxCalls != 0 {
		t.Fatalf("expected no service calls for invalid input")
	}
}

func TestFacade_DelegatesRemainingOperations(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	ctx := context.Background()

	group, err := facade.GroupCheckout(ctx, core.GroupCheckoutRequest{
		MerchantID:       "https://wallet.test/shop",
		TotalAmountMinor: 300,
		Payers:           []string{"https://wallet.test/a", "https://wallet.test/b"},
	})
	if err != nil || group.Count != 2 {
		t.Fatalf("unexpected group checkout %#v %v", group, err)
	}
	callback, err := facade.CompleteCallback(ctx, core.CallbackRequest{Nonce: "n", InteractRef: "ref"})
	if err != nil || callback.Status != "ok" {
		t.Fatalf("unexpected callback %#v %v", callback, err)
	}
	removed, err := facade.SweepPending(ctx)
	if err != nil || removed != 3 {
		t.Fatalf("unexpected sweep %d %v", removed, err)
	}
	comparison, err := facade.CompareFX(ctx, core.FXCompareRequest{From: "USD", To: "EUR"})
	if err != nil || comparison.From != "USD" {
		t.Fatalf("unexpected comparison %#v %v", comparison, err)
	}
	currencies, err := facade.SupportedCurrencies(ctx)
	if err != nil || len(currencies) != 2 {
		t.Fatalf("unexpected currencies %v %v", currencies, err)
	}
}

func TestFacade_PropagatesServiceErrors(t *testing.T) {
	failure := errors.New("upstream down")
	facade, err := NewFacade(&stubFacadeService{err: failure})
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	_, err = facade.Checkout(context.Background(), core.CheckoutRequest{
		CustomerID:  "a",
		MerchantID:  "b",
		AmountMinor: 100,
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected service error, got %v", err)
	}
}

type stubFacadeService struct {
	err           error
	checkoutCalls int
	groupCalls    int
	callbackCalls int
	fxCalls       int
}

func (s *stubFacadeService) Checkout(context.Context, core.CheckoutRequest) (core.CheckoutResult, error) {
	s.checkoutCalls++
	if s.err != nil {
		return core.CheckoutResult{}, s.err
	}
	return core.CheckoutResult{RedirectURL: "https://auth.test/interact", Nonce: "nonce-1"}, nil
}

func (s *stubFacadeService) GroupCheckout(_ context.Context, req core.GroupCheckoutRequest) (core.GroupCheckoutResult, error) {
	s.groupCalls++
	return core.GroupCheckoutResult{Merchant: req.MerchantID, TotalMinor: req.TotalAmountMinor, Count: len(req.Payers)}, nil
}

func (s *stubFacadeService) CompleteCallback(context.Context, core.CallbackRequest) (core.CallbackResult, error) {
	s.callbackCalls++
	return core.CallbackResult{Status: "ok"}, nil
}

func (s *stubFacadeService) SweepPending(context.Context) (int, error) {
	return 3, nil
}

func (s *stubFacadeService) CompareFX(_ context.Context, req core.FXCompareRequest) (core.FXComparison, error) {
	s.fxCalls++
	return core.FXComparison{From: req.From, To: req.To}, nil
}

func (s *stubFacadeService) SupportedCurrencies() []string {
	return []string{"EUR", "USD"}
}
