package core

import (
	"errors"
	"testing"
	"time"
)

func TestWalletAddressValidate(t *testing.T) {
	wallet := testWallet(testCustomerWallet, "USD", 2)
	if err := wallet.Validate(); err != nil {
		t.Fatalf("expected valid wallet, got %v", err)
	}
	wallet.AuthServer = ""
	if err := wallet.Validate(); err == nil {
		t.Fatalf("expected missing auth server to be rejected")
	}
}

func TestAmountInt(t *testing.T) {
	if _, err := (Amount{Value: "-1"}).Int(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected negative amount to be invalid, got %v", err)
	}
	if _, err := (Amount{Value: "12.5"}).Int(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected fractional amount to be invalid, got %v", err)
	}
	value, err := (Amount{Value: " 1200 "}).Int()
	if err != nil || value.Int64() != 1200 {
		t.Fatalf("expected 1200, got %v (err=%v)", value, err)
	}
}

func TestOutgoingPaymentAccessLimitsDebit(t *testing.T) {
	wallet := testWallet(testCustomerWallet, "EUR", 2)
	access := OutgoingPaymentAccess(wallet, Amount{Value: "500", AssetCode: "EUR", AssetScale: 2})
	if access.Identifier != wallet.ID || access.Limits.DebitAmount.Value != "500" {
		t.Fatalf("unexpected access %+v", access)
	}
	if len(access.Actions) != 1 || access.Actions[0] != AccessActionCreate {
		t.Fatalf("expected create action, got %v", access.Actions)
	}
}

func TestPendingCheckoutExpired(t *testing.T) {
	now := time.Now().UTC()
	if (PendingCheckout{}).Expired(now) {
		t.Fatalf("expected zero expiry to never expire")
	}
	if !(PendingCheckout{ExpiresAt: now}).Expired(now) {
		t.Fatalf("expected expiry at now to be expired")
	}
}

func TestGenerateNonce(t *testing.T) {
	a, err := GenerateNonce()
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	b, _ := GenerateNonce()
	if len(a) != 32 || a == b {
		t.Fatalf("expected distinct 128-bit hex nonces, got %q and %q", a, b)
	}
}
