package core

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
)

const (
	testCustomerWallet = "https://wallet.test/alice"
	testMerchantWallet = "https://wallet.test/shop"
	testPlatformWallet = "https://wallet.test/platform"
)

func testWallet(id string, assetCode string, assetScale int) WalletAddress {
	host := id[:strings.LastIndex(id, "/")]
	return WalletAddress{
		ID:             id,
		PublicName:     id[strings.LastIndex(id, "/")+1:],
		AuthServer:     host + "/auth",
		ResourceServer: host + "/rs",
		AssetCode:      assetCode,
		AssetScale:     assetScale,
	}
}

// stubNetwork is an in-memory NetworkClient. Quotes debit exactly what the
// receiver gets unless quoteFn says otherwise.
type stubNetwork struct {
	mu       sync.Mutex
	calls    []string
	wallets  map[string]WalletAddress
	incoming map[string]IncomingPaymentInput
	grants   []GrantRequest
	outgoing []OutgoingPaymentInput
	seq      int

	walletErr   error
	grantErr    error
	continueErr error
	quoteFn     func(in QuoteInput, incoming IncomingPaymentInput) (Quote, error)
	outgoingFn  func(in OutgoingPaymentInput) (OutgoingPayment, error)
}

func newStubNetwork(wallets ...WalletAddress) *stubNetwork {
	n := &stubNetwork{
		wallets:  map[string]WalletAddress{},
		incoming: map[string]IncomingPaymentInput{},
	}
	for _, wallet := range wallets {
		n.wallets[wallet.ID] = wallet
	}
	return n
}

func defaultStubNetwork() *stubNetwork {
	return newStubNetwork(
		testWallet(testCustomerWallet, "USD", 2),
		testWallet(testMerchantWallet, "USD", 2),
		testWallet(testPlatformWallet, "USD", 2),
	)
}

func (n *stubNetwork) record(call string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
	n.seq++
	return n.seq
}

func (n *stubNetwork) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func (n *stubNetwork) countCalls(prefix string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, call := range n.calls {
		if strings.HasPrefix(call, prefix) {
			count++
		}
	}
	return count
}

func (n *stubNetwork) GetWalletAddress(_ context.Context, url string) (WalletAddress, error) {
	n.record("wallet " + url)
	if n.walletErr != nil {
		return WalletAddress{}, n.walletErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	wallet, ok := n.wallets[url]
	if !ok {
		return WalletAddress{}, fmt.Errorf("wallet %s not found", url)
	}
	return wallet, nil
}

func (n *stubNetwork) RequestGrant(_ context.Context, authServer string, req GrantRequest) (Grant, error) {
	n.record("grant " + req.Access[0].Type)
	if n.grantErr != nil {
		return Grant{}, n.grantErr
	}
	n.mu.Lock()
	n.grants = append(n.grants, req)
	n.mu.Unlock()
	if req.Interact != nil {
		nonce := req.Interact.Finish.Nonce
		return Grant{
			Interact: &GrantInteraction{Redirect: authServer + "/interact/" + nonce},
			Continue: &GrantContinuation{URI: authServer + "/continue/" + nonce, AccessToken: "continue-" + nonce},
		}, nil
	}
	return Grant{AccessToken: &AccessToken{Value: "token-" + req.Access[0].Type}}, nil
}

func (n *stubNetwork) ContinueGrant(_ context.Context, continuation GrantContinuation, interactRef string) (Grant, error) {
	n.record("continue " + continuation.URI)
	if n.continueErr != nil {
		return Grant{}, n.continueErr
	}
	return Grant{AccessToken: &AccessToken{Value: "outgoing-" + interactRef}}, nil
}

func (n *stubNetwork) CreateIncomingPayment(_ context.Context, resourceServer string, _ string, in IncomingPaymentInput) (IncomingPayment, error) {
	seq := n.record("incoming " + in.WalletAddress)
	id := fmt.Sprintf("%s/incoming-payments/%d", resourceServer, seq)
	n.mu.Lock()
	n.incoming[id] = in
	n.mu.Unlock()
	return IncomingPayment{ID: id, WalletAddress: in.WalletAddress, IncomingAmount: in.IncomingAmount}, nil
}

func (n *stubNetwork) CreateQuote(_ context.Context, resourceServer string, _ string, in QuoteInput) (Quote, error) {
	seq := n.record("quote " + in.Receiver)
	n.mu.Lock()
	incoming := n.incoming[in.Receiver]
	payer := n.wallets[in.WalletAddress]
	n.mu.Unlock()
	if n.quoteFn != nil {
		return n.quoteFn(in, incoming)
	}
	if incoming.IncomingAmount == nil {
		return Quote{}, fmt.Errorf("receiver %s has no amount", in.Receiver)
	}
	return Quote{
		ID:            fmt.Sprintf("%s/quotes/%d", resourceServer, seq),
		WalletAddress: in.WalletAddress,
		Receiver:      in.Receiver,
		DebitAmount:   Amount{Value: incoming.IncomingAmount.Value, AssetCode: payer.AssetCode, AssetScale: payer.AssetScale},
		ReceiveAmount: *incoming.IncomingAmount,
	}, nil
}

func (n *stubNetwork) CreateOutgoingPayment(_ context.Context, resourceServer string, _ string, in OutgoingPaymentInput) (OutgoingPayment, error) {
	seq := n.record("outgoing " + in.QuoteID)
	n.mu.Lock()
	n.outgoing = append(n.outgoing, in)
	n.mu.Unlock()
	if n.outgoingFn != nil {
		return n.outgoingFn(in)
	}
	return OutgoingPayment{
		ID:            fmt.Sprintf("%s/outgoing-payments/%d", resourceServer, seq),
		WalletAddress: in.WalletAddress,
		QuoteID:       in.QuoteID,
	}, nil
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type stubMarketSource struct {
	mu    sync.Mutex
	calls int
	rate  MarketRate
	err   error
}

func (m *stubMarketSource) MarketRate(context.Context, string, string) (MarketRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.rate, m.err
}

func (m *stubMarketSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func sequenceNonces() NonceGenerator {
	var mu sync.Mutex
	next := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("nonce-%d", next), nil
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PlatformWalletAddress = testPlatformWallet
	cfg.ClientKeyID = "key-1"
	cfg.PrivateKeyPEM = "test-private-key"
	cfg.BaseURL = "https://shop.test/"
	return cfg
}

func newTestService(network NetworkClient, opts ...Option) (*Service, error) {
	base := []Option{
		WithNetworkClient(network),
		WithNonceGenerator(sequenceNonces()),
	}
	return NewService(testConfig(), append(base, opts...)...)
}

func amountValue(t testing.TB, amount Amount) *big.Int {
	t.Helper()
	value, err := amount.Int()
	if err != nil {
		t.Fatalf("parse amount %q: %v", amount.Value, err)
	}
	return value
}
