package core

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

var (
	ErrPendingCheckoutNotFound = errors.New("core: pending checkout not found")
	ErrInvalidAmount           = errors.New("core: invalid amount")
)

const (
	AccessTypeIncomingPayment = "incoming-payment"
	AccessTypeQuote           = "quote"
	AccessTypeOutgoingPayment = "outgoing-payment"

	AccessActionCreate = "create"
	AccessActionRead   = "read"

	InteractStartRedirect  = "redirect"
	InteractFinishRedirect = "redirect"

	QuoteMethodILP = "ilp"
)

const (
	LegRoleMerchant = "merchant"
	LegRolePlatform = "platform"
	LegRoleShare    = "share"
)

type WalletAddress struct {
	ID             string `json:"id"`
	PublicName     string `json:"publicName,omitempty"`
	AuthServer     string `json:"authServer"`
	ResourceServer string `json:"resourceServer"`
	AssetCode      string `json:"assetCode"`
	AssetScale     int    `json:"assetScale"`
}

func (w WalletAddress) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("core: wallet address id is required")
	}
	if strings.TrimSpace(w.AuthServer) == "" {
		return fmt.Errorf("core: wallet address %s has no auth server", w.ID)
	}
	if strings.TrimSpace(w.ResourceServer) == "" {
		return fmt.Errorf("core: wallet address %s has no resource server", w.ID)
	}
	if w.AssetScale < 0 {
		return fmt.Errorf("core: wallet address %s has negative asset scale", w.ID)
	}
	return nil
}

// Amount is a value in minor units, carried as a base-10 integer string.
type Amount struct {
	Value      string `json:"value"`
	AssetCode  string `json:"assetCode"`
	AssetScale int    `json:"assetScale"`
}

func NewAmount(value *big.Int, assetCode string, assetScale int) Amount {
	if value == nil {
		value = new(big.Int)
	}
	return Amount{
		Value:      value.String(),
		AssetCode:  assetCode,
		AssetScale: assetScale,
	}
}

func AmountFor(wallet WalletAddress, value *big.Int) Amount {
	return NewAmount(value, wallet.AssetCode, wallet.AssetScale)
}

func (a Amount) Int() (*big.Int, error) {
	raw := strings.TrimSpace(a.Value)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidAmount, raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, raw)
	}
	return value, nil
}

type AccessLimits struct {
	DebitAmount   *Amount `json:"debitAmount,omitempty"`
	ReceiveAmount *Amount `json:"receiveAmount,omitempty"`
}

// AccessItem is an opaque capability tuple requested from an auth server.
type AccessItem struct {
	Type       string        `json:"type"`
	Actions    []string      `json:"actions"`
	Identifier string        `json:"identifier,omitempty"`
	Limits     *AccessLimits `json:"limits,omitempty"`
}

func IncomingPaymentAccess() AccessItem {
	return AccessItem{Type: AccessTypeIncomingPayment, Actions: []string{AccessActionCreate}}
}

func QuoteAccess() AccessItem {
	return AccessItem{Type: AccessTypeQuote, Actions: []string{AccessActionCreate}}
}

func OutgoingPaymentAccess(wallet WalletAddress, debit Amount) AccessItem {
	return AccessItem{
		Type:       AccessTypeOutgoingPayment,
		Actions:    []string{AccessActionCreate},
		Identifier: wallet.ID,
		Limits:     &AccessLimits{DebitAmount: &debit},
	}
}

type InteractFinish struct {
	Method string `json:"method"`
	URI    string `json:"uri"`
	Nonce  string `json:"nonce"`
}

type InteractRequest struct {
	Start  []string        `json:"start"`
	Finish *InteractFinish `json:"finish,omitempty"`
}

type GrantRequest struct {
	Access   []AccessItem
	Interact *InteractRequest
}

type AccessToken struct {
	Value     string `json:"value"`
	ManageURI string `json:"manage,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

// GrantContinuation is the capability needed to finish an interactive grant.
type GrantContinuation struct {
	URI         string `json:"uri"`
	AccessToken string `json:"accessToken"`
	Wait        int    `json:"wait,omitempty"`
}

type GrantInteraction struct {
	Redirect string `json:"redirect"`
	Finish   string `json:"finish,omitempty"`
}

// Grant is the union of the two grant response shapes: an issued access token
// or a pending interaction with its continuation.
type Grant struct {
	AccessToken *AccessToken
	Continue    *GrantContinuation
	Interact    *GrantInteraction
}

type InteractiveGrant struct {
	RedirectURL  string
	Continuation GrantContinuation
	Nonce        string
}

type IncomingPaymentInput struct {
	WalletAddress  string
	IncomingAmount *Amount
}

type IncomingPayment struct {
	ID             string  `json:"id"`
	WalletAddress  string  `json:"walletAddress"`
	IncomingAmount *Amount `json:"incomingAmount,omitempty"`
	ReceivedAmount *Amount `json:"receivedAmount,omitempty"`
	Completed      bool    `json:"completed"`
}

type QuoteInput struct {
	WalletAddress string
	Receiver      string
	Method        string
	DebitAmount   *Amount
	ReceiveAmount *Amount
}

type Quote struct {
	ID            string `json:"id"`
	WalletAddress string `json:"walletAddress"`
	Receiver      string `json:"receiver"`
	Method        string `json:"method,omitempty"`
	DebitAmount   Amount `json:"debitAmount"`
	ReceiveAmount Amount `json:"receiveAmount"`
}

type OutgoingPaymentInput struct {
	WalletAddress string
	QuoteID       string
}

type OutgoingPayment struct {
	ID            string  `json:"id"`
	WalletAddress string  `json:"walletAddress"`
	QuoteID       string  `json:"quoteId,omitempty"`
	Receiver      string  `json:"receiver,omitempty"`
	DebitAmount   Amount  `json:"debitAmount"`
	ReceiveAmount Amount  `json:"receiveAmount"`
	SentAmount    *Amount `json:"sentAmount,omitempty"`
	Failed        bool    `json:"failed"`
}

// CheckoutLeg pairs one receiver with the quote the payer will settle.
type CheckoutLeg struct {
	Role     string        `json:"role"`
	Receiver WalletAddress `json:"receiver"`
	Quote    Quote         `json:"quote"`
}

// PendingCheckout is the server-side state bridging a consent redirect and
// its callback.
type PendingCheckout struct {
	Nonce        string
	Payer        WalletAddress
	Legs         []CheckoutLeg
	Continuation GrantContinuation
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func (p PendingCheckout) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

type SplitRatio struct {
	MerchantPct float64
	PlatformPct float64
}

func DefaultSplitRatio() SplitRatio {
	return SplitRatio{MerchantPct: 99, PlatformPct: 1}
}

type CheckoutRequest struct {
	CustomerID  string
	MerchantID  string
	AmountMinor int64
	// Split nil applies DefaultSplitRatio.
	Split       *SplitRatio
}

type CheckoutResult struct {
	RedirectURL   string
	Nonce         string
	MerchantShare int64
	PlatformShare int64
	DebitTotal    Amount
}

type GroupCheckoutRequest struct {
	MerchantID       string
	TotalAmountMinor int64
	Payers           []string
}

type PayerCheckout struct {
	Payer       string
	ShareMinor  int64
	RedirectURL string
	Nonce       string
}

type GroupCheckoutResult struct {
	Merchant   string
	TotalMinor int64
	Count      int
	Results    []PayerCheckout
}

type CallbackRequest struct {
	Nonce       string
	InteractRef string
}

type CallbackResult struct {
	Status           string
	Payer            string
	OutgoingPayments []OutgoingPayment
}

type FXCompareRequest struct {
	From string
	To   string
}

type MarketRate struct {
	Rate     float64
	Provider string
}

type ILPRate struct {
	Rate          float64
	DebitAmount   *Amount
	ReceiveAmount *Amount
	QuoteID       string
}

type MarketComparison struct {
	Rate     *float64
	Source   *string
	Provider string
	Error    string
}

type FXComparison struct {
	From      string
	To        string
	SendMajor int64
	SendMinor string
	ILP       ILPRate
	Market    MarketComparison
	DeltaPct  *float64
}
