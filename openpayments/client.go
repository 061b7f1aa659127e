package openpayments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-splitpay/core"
	"github.com/goliatone/go-splitpay/transport"
)

type Config struct {
	// ClientWalletAddress identifies this client in grant requests.
	ClientWalletAddress string
	KeyID               string
	PrivateKeyPEM       string
	RequestTimeout      time.Duration
}

type Option func(*Client)

func WithAdapter(adapter transport.Adapter) Option {
	return func(c *Client) {
		if adapter != nil {
			c.adapter = adapter
		}
	}
}

func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.adapter = transport.NewRESTAdapter(client)
		}
	}
}

func WithSigner(signer transport.RequestSigner) Option {
	return func(c *Client) {
		if signer != nil {
			c.signer = signer
		}
	}
}

// Client talks to Open Payments wallet, auth, and resource servers. Wallet
// lookups are anonymous; every other call is signed with the client key.
type Client struct {
	adapter transport.Adapter
	signer  transport.RequestSigner
	client  string
	timeout time.Duration
}

// NewClient builds a client. Without a key id and private key the client can
// still resolve wallet addresses, and signed calls fail.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		adapter: transport.NewRESTAdapter(nil),
		client:  strings.TrimSpace(cfg.ClientWalletAddress),
		timeout: cfg.RequestTimeout,
	}
	if strings.TrimSpace(cfg.KeyID) != "" && strings.TrimSpace(cfg.PrivateKeyPEM) != "" {
		signer, err := NewHTTPSigner(cfg.KeyID, cfg.PrivateKeyPEM)
		if err != nil {
			return nil, err
		}
		c.signer = signer
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) GetWalletAddress(ctx context.Context, url string) (core.WalletAddress, error) {
	if strings.TrimSpace(url) == "" {
		return core.WalletAddress{}, fmt.Errorf("openpayments: wallet address url is required")
	}
	var wallet core.WalletAddress
	if err := c.send(ctx, call{
		step:   "get wallet address",
		method: http.MethodGet,
		url:    url,
	}, &wallet); err != nil {
		return core.WalletAddress{}, err
	}
	return wallet, nil
}

func (c *Client) RequestGrant(ctx context.Context, authServer string, req core.GrantRequest) (core.Grant, error) {
	if c.client == "" {
		return core.Grant{}, fmt.Errorf("openpayments: client wallet address is not configured")
	}
	var res grantResponseWire
	if err := c.send(ctx, call{
		step:   "request grant",
		method: http.MethodPost,
		url:    authServer,
		signed: true,
		payload: grantRequestWire{
			AccessToken: accessTokenRequestWire{Access: req.Access},
			Client:      c.client,
			Interact:    req.Interact,
		},
	}, &res); err != nil {
		return core.Grant{}, err
	}
	return res.grant(), nil
}

func (c *Client) ContinueGrant(ctx context.Context, continuation core.GrantContinuation, interactRef string) (core.Grant, error) {
	var res grantResponseWire
	if err := c.send(ctx, call{
		step:    "continue grant",
		method:  http.MethodPost,
		url:     continuation.URI,
		token:   continuation.AccessToken,
		signed:  true,
		payload: continueRequestWire{InteractRef: interactRef},
	}, &res); err != nil {
		return core.Grant{}, err
	}
	return res.grant(), nil
}

func (c *Client) CreateIncomingPayment(
	ctx context.Context,
	resourceServer string,
	accessToken string,
	in core.IncomingPaymentInput,
) (core.IncomingPayment, error) {
	var payment core.IncomingPayment
	if err := c.send(ctx, call{
		step:   "create incoming payment",
		method: http.MethodPost,
		url:    resourceURL(resourceServer, "incoming-payments"),
		token:  accessToken,
		signed: true,
		payload: incomingPaymentRequestWire{
			WalletAddress:  in.WalletAddress,
			IncomingAmount: in.IncomingAmount,
		},
	}, &payment); err != nil {
		return core.IncomingPayment{}, err
	}
	return payment, nil
}

func (c *Client) CreateQuote(
	ctx context.Context,
	resourceServer string,
	accessToken string,
	in core.QuoteInput,
) (core.Quote, error) {
	method := in.Method
	if method == "" {
		method = core.QuoteMethodILP
	}
	var quote core.Quote
	if err := c.send(ctx, call{
		step:   "create quote",
		method: http.MethodPost,
		url:    resourceURL(resourceServer, "quotes"),
		token:  accessToken,
		signed: true,
		payload: quoteRequestWire{
			WalletAddress: in.WalletAddress,
			Receiver:      in.Receiver,
			Method:        method,
			DebitAmount:   in.DebitAmount,
			ReceiveAmount: in.ReceiveAmount,
		},
	}, &quote); err != nil {
		return core.Quote{}, err
	}
	return quote, nil
}

func (c *Client) CreateOutgoingPayment(
	ctx context.Context,
	resourceServer string,
	accessToken string,
	in core.OutgoingPaymentInput,
) (core.OutgoingPayment, error) {
	var payment core.OutgoingPayment
	if err := c.send(ctx, call{
		step:   "create outgoing payment",
		method: http.MethodPost,
		url:    resourceURL(resourceServer, "outgoing-payments"),
		token:  accessToken,
		signed: true,
		payload: outgoingPaymentRequestWire{
			WalletAddress: in.WalletAddress,
			QuoteID:       in.QuoteID,
		},
	}, &payment); err != nil {
		return core.OutgoingPayment{}, err
	}
	return payment, nil
}

type call struct {
	step    string
	method  string
	url     string
	token   string
	signed  bool
	payload any
}

func (c *Client) send(ctx context.Context, in call, out any) error {
	if c == nil || c.adapter == nil {
		return fmt.Errorf("openpayments: client is not configured")
	}
	target := strings.TrimSpace(in.url)
	if target == "" {
		return fmt.Errorf("openpayments: %s requires a url", in.step)
	}

	req := transport.Request{
		Method:  in.method,
		URL:     target,
		Headers: map[string]string{"Accept": "application/json"},
		Timeout: c.timeout,
	}
	if in.payload != nil {
		body, err := json.Marshal(in.payload)
		if err != nil {
			return fmt.Errorf("openpayments: encode %s request: %w", in.step, err)
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}
	if token := strings.TrimSpace(in.token); token != "" {
		req.Headers["Authorization"] = "GNAP " + token
	}
	if in.signed {
		if c.signer == nil {
			return goerrors.New("openpayments: request signing is not configured", goerrors.CategoryBadInput).
				WithCode(http.StatusBadRequest).
				WithTextCode(core.ServiceErrorConfiguration)
		}
		req.Signer = c.signer
	}

	res, err := c.adapter.Do(ctx, req)
	if err != nil {
		return err
	}
	if !res.OK() {
		return transport.StatusError(res, map[string]any{
			"step": in.step,
			"url":  target,
		})
	}
	if out == nil || len(res.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return fmt.Errorf("openpayments: decode %s response: %w", in.step, err)
	}
	return nil
}

func resourceURL(resourceServer string, collection string) string {
	base := strings.TrimRight(strings.TrimSpace(resourceServer), "/")
	if base == "" {
		return ""
	}
	return base + "/" + collection
}

var _ core.NetworkClient = (*Client)(nil)
