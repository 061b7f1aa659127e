package openpayments

import "github.com/goliatone/go-splitpay/core"

type grantRequestWire struct {
	AccessToken accessTokenRequestWire `json:"access_token"`
	Client      string                 `json:"client"`
	Interact    *core.InteractRequest  `json:"interact,omitempty"`
}

type accessTokenRequestWire struct {
	Access []core.AccessItem `json:"access"`
}

type continueRequestWire struct {
	InteractRef string `json:"interact_ref"`
}

type grantResponseWire struct {
	AccessToken *struct {
		Value     string `json:"value"`
		Manage    string `json:"manage"`
		ExpiresIn int64  `json:"expires_in"`
	} `json:"access_token"`
	Continue *struct {
		AccessToken struct {
			Value string `json:"value"`
		} `json:"access_token"`
		URI  string `json:"uri"`
		Wait int    `json:"wait"`
	} `json:"continue"`
	Interact *struct {
		Redirect string `json:"redirect"`
		Finish   string `json:"finish"`
	} `json:"interact"`
}

func (w grantResponseWire) grant() core.Grant {
	var grant core.Grant
	if w.AccessToken != nil {
		grant.AccessToken = &core.AccessToken{
			Value:     w.AccessToken.Value,
			ManageURI: w.AccessToken.Manage,
			ExpiresIn: w.AccessToken.ExpiresIn,
		}
	}
	if w.Continue != nil {
		grant.Continue = &core.GrantContinuation{
			URI:         w.Continue.URI,
			AccessToken: w.Continue.AccessToken.Value,
			Wait:        w.Continue.Wait,
		}
	}
	if w.Interact != nil {
		grant.Interact = &core.GrantInteraction{
			Redirect: w.Interact.Redirect,
			Finish:   w.Interact.Finish,
		}
	}
	return grant
}

type incomingPaymentRequestWire struct {
	WalletAddress  string       `json:"walletAddress"`
	IncomingAmount *core.Amount `json:"incomingAmount,omitempty"`
}

type quoteRequestWire struct {
	WalletAddress string       `json:"walletAddress"`
	Receiver      string       `json:"receiver"`
	Method        string       `json:"method"`
	DebitAmount   *core.Amount `json:"debitAmount,omitempty"`
	ReceiveAmount *core.Amount `json:"receiveAmount,omitempty"`
}

type outgoingPaymentRequestWire struct {
	WalletAddress string `json:"walletAddress"`
	QuoteID       string `json:"quoteId"`
}
