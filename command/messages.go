package command

import (
	"strings"

	"github.com/goliatone/go-splitpay/core"
)

const (
	TypeCheckout         = "splitpay.command.checkout"
	TypeGroupCheckout    = "splitpay.command.group_checkout"
	TypeCompleteCallback = "splitpay.command.callback.complete"
	TypeSweepPending     = "splitpay.command.pending.sweep"
)

type CheckoutMessage struct {
	Request core.CheckoutRequest
}

func (CheckoutMessage) Type() string { return TypeCheckout }

func (m CheckoutMessage) Validate() error {
	if strings.TrimSpace(m.Request.CustomerID) == "" {
		return commandValidationError("customerId", "customerId is required")
	}
	if strings.TrimSpace(m.Request.MerchantID) == "" {
		return commandValidationError("merchantId", "merchantId is required")
	}
	if m.Request.AmountMinor <= 0 {
		return commandValidationError("amountMinor", "amountMinor must be a positive integer")
	}
	if m.Request.Split != nil {
		if err := core.ValidateSplit(*m.Request.Split); err != nil {
			return commandWrapValidation(err, "command: invalid split")
		}
	}
	return nil
}

type GroupCheckoutMessage struct {
	Request core.GroupCheckoutRequest
}

func (GroupCheckoutMessage) Type() string { return TypeGroupCheckout }

func (m GroupCheckoutMessage) Validate() error {
	if strings.TrimSpace(m.Request.MerchantID) == "" {
		return commandValidationError("merchantId", "merchantId is required")
	}
	if len(m.Request.Payers) == 0 {
		return commandValidationError("payers", "at least one payer is required")
	}
	for _, payer := range m.Request.Payers {
		if strings.TrimSpace(payer) == "" {
			return commandValidationError("payers", "payer wallet addresses must not be empty")
		}
	}
	if m.Request.TotalAmountMinor <= 0 {
		return commandValidationError("totalAmountMinor", "totalAmountMinor must be a positive integer")
	}
	if m.Request.TotalAmountMinor < int64(len(m.Request.Payers)) {
		return commandValidationError("totalAmountMinor", "totalAmountMinor must cover one minor unit per payer")
	}
	return nil
}

type CompleteCallbackMessage struct {
	Request core.CallbackRequest
}

func (CompleteCallbackMessage) Type() string { return TypeCompleteCallback }

func (m CompleteCallbackMessage) Validate() error {
	if strings.TrimSpace(m.Request.Nonce) == "" {
		return commandValidationError("nonce", "nonce is required")
	}
	if strings.TrimSpace(m.Request.InteractRef) == "" {
		return commandValidationError("interact_ref", "interact_ref is required")
	}
	return nil
}

type SweepPendingMessage struct{}

func (SweepPendingMessage) Type() string { return TypeSweepPending }

func (SweepPendingMessage) Validate() error { return nil }
