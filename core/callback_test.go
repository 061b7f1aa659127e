package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func startTestCheckout(t *testing.T, svc *Service) CheckoutResult {
	t.Helper()
	result, err := svc.Checkout(context.Background(), CheckoutRequest{
		CustomerID:  testCustomerWallet,
		MerchantID:  testMerchantWallet,
		AmountMinor: 10000,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return result
}

func TestServiceCompleteCallback_CreatesOutgoingPaymentPerLeg(t *testing.T) {
	network := defaultStubNetwork()
	svc, err := newTestService(network)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	checkout := startTestCheckout(t, svc)

	result, err := svc.CompleteCallback(context.Background(), CallbackRequest{
		Nonce:       checkout.Nonce,
		InteractRef: "ref-1",
	})
	if err != nil {
		t.Fatalf("complete callback: %v", err)
	}
	if result.Status != CallbackStatusOK || result.Payer != testCustomerWallet {
		t.Fatalf("unexpected callback result %+v", result)
	}
	if len(result.OutgoingPayments) != 2 {
		t.Fatalf("expected 2 outgoing payments, got %d", len(result.OutgoingPayments))
	}
	if got := network.countCalls("continue "); got != 1 {
		t.Fatalf("expected one grant continuation, got %d", got)
	}
	for _, payment := range result.OutgoingPayments {
		if payment.WalletAddress != testCustomerWallet || payment.QuoteID == "" {
			t.Fatalf("unexpected outgoing payment %+v", payment)
		}
	}
}

func TestServiceCompleteCallback_ReplayIsFlowNotFound(t *testing.T) {
	network := defaultStubNetwork()
	svc, err := newTestService(network)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	checkout := startTestCheckout(t, svc)
	req := CallbackRequest{Nonce: checkout.Nonce, InteractRef: "ref-1"}
	if _, err := svc.CompleteCallback(context.Background(), req); err != nil {
		t.Fatalf("first callback: %v", err)
	}

	_, err = svc.CompleteCallback(context.Background(), req)
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %v", err)
	}
	if rich.TextCode != ServiceErrorFlowNotFound || rich.Code != http.StatusInternalServerError {
		t.Fatalf("expected flow not found as 500, got %s/%d", rich.TextCode, rich.Code)
	}
	if !errors.Is(err, ErrPendingCheckoutNotFound) {
		t.Fatalf("expected sentinel to be preserved, got %v", err)
	}
	if got := network.countCalls("outgoing "); got != 2 {
		t.Fatalf("expected replay to create no payments, got %d outgoing calls", got)
	}
}

func TestServiceCompleteCallback_UnknownNonce(t *testing.T) {
	network := defaultStubNetwork()
	svc, err := newTestService(network)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_, err = svc.CompleteCallback(context.Background(), CallbackRequest{Nonce: "typo", InteractRef: "ref"})
	if !IsTextCode(err, ServiceErrorFlowNotFound) {
		t.Fatalf("expected flow not found, got %v", err)
	}
	if network.callCount() != 0 {
		t.Fatalf("expected no network calls, got %v", network.calls)
	}
}

func TestServiceCompleteCallback_RequiresParameters(t *testing.T) {
	svc, err := newTestService(defaultStubNetwork())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	for _, req := range []CallbackRequest{
		{InteractRef: "ref"},
		{Nonce: "nonce"},
	} {
		_, err := svc.CompleteCallback(context.Background(), req)
		if !IsTextCode(err, ServiceErrorBadInput) {
			t.Fatalf("expected bad input for %+v, got %v", req, err)
		}
	}
}

func TestServiceCompleteCallback_PartialFailureReportsCreatedPayments(t *testing.T) {
	network := defaultStubNetwork()
	svc, err := newTestService(network)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	checkout := startTestCheckout(t, svc)

	pending, err := svc.PendingStore().Take(context.Background(), checkout.Nonce)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	failingQuote := pending.Legs[1].Quote.ID
	if err := svc.PendingStore().Put(context.Background(), pending); err != nil {
		t.Fatalf("put back: %v", err)
	}
	network.outgoingFn = func(in OutgoingPaymentInput) (OutgoingPayment, error) {
		if in.QuoteID == failingQuote {
			return OutgoingPayment{}, fmt.Errorf("insufficient liquidity")
		}
		return OutgoingPayment{ID: "out-" + in.QuoteID, WalletAddress: in.WalletAddress, QuoteID: in.QuoteID}, nil
	}

	_, err = svc.CompleteCallback(context.Background(), CallbackRequest{Nonce: checkout.Nonce, InteractRef: "ref"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %v", err)
	}
	if rich.TextCode != ServiceErrorResolutionFailed {
		t.Fatalf("expected resolution failure, got %s", rich.TextCode)
	}
	if !strings.Contains(rich.Message, "insufficient liquidity") {
		t.Fatalf("expected upstream message, got %q", rich.Message)
	}
	created, _ := rich.Metadata["created_payment_ids"].([]string)
	failed, _ := rich.Metadata["failed_quote_ids"].([]string)
	if len(created) != 1 || created[0] != "out-"+pending.Legs[0].Quote.ID {
		t.Fatalf("expected the merchant leg to be reported as created, got %v", created)
	}
	if len(failed) != 1 || failed[0] != failingQuote {
		t.Fatalf("expected the platform quote to be reported as failed, got %v", failed)
	}
	if got := network.countCalls("outgoing "); got != 2 {
		t.Fatalf("expected every leg to be attempted, got %d", got)
	}
}

func TestServiceCompleteCallback_ContinuationRejected(t *testing.T) {
	network := defaultStubNetwork()
	svc, err := newTestService(network)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	checkout := startTestCheckout(t, svc)
	network.continueErr = goerrors.New("grant already continued", goerrors.CategoryBadInput).WithCode(http.StatusBadRequest)

	_, err = svc.CompleteCallback(context.Background(), CallbackRequest{Nonce: checkout.Nonce, InteractRef: "ref"})
	if !IsTextCode(err, ServiceErrorResolutionFailed) {
		t.Fatalf("expected upstream rejection as resolution failure, got %v", err)
	}
	if got := network.countCalls("continue "); got != 1 {
		t.Fatalf("expected client errors not to be retried, got %d continuations", got)
	}
	if got := network.countCalls("outgoing "); got != 0 {
		t.Fatalf("expected no outgoing payments, got %d", got)
	}
}
