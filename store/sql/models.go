package sqlstore

import (
	"time"

	"github.com/goliatone/go-splitpay/core"
	"github.com/uptrace/bun"
)

type pendingCheckoutRecord struct {
	bun.BaseModel `bun:"table:splitpay_pending_checkouts,alias:spc"`

	ID            string             `bun:"id,pk"`
	Nonce         string             `bun:"nonce,notnull"`
	Payer         core.WalletAddress `bun:"payer,type:jsonb,notnull"`
	Legs          []core.CheckoutLeg `bun:"legs,type:jsonb,notnull"`
	ContinueURI   string             `bun:"continue_uri,notnull"`
	ContinueToken string             `bun:"continue_token,notnull"`
	ContinueWait  int                `bun:"continue_wait,notnull"`
	CreatedAt     time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	ExpiresAt     time.Time          `bun:"expires_at,notnull"`
}

func pendingCheckoutToRecord(pending core.PendingCheckout) *pendingCheckoutRecord {
	legs := pending.Legs
	if legs == nil {
		legs = []core.CheckoutLeg{}
	}
	return &pendingCheckoutRecord{
		Nonce:         pending.Nonce,
		Payer:         pending.Payer,
		Legs:          append([]core.CheckoutLeg(nil), legs...),
		ContinueURI:   pending.Continuation.URI,
		ContinueToken: pending.Continuation.AccessToken,
		ContinueWait:  pending.Continuation.Wait,
		CreatedAt:     pending.CreatedAt.UTC(),
		ExpiresAt:     pending.ExpiresAt.UTC(),
	}
}

func recordToPendingCheckout(record pendingCheckoutRecord) core.PendingCheckout {
	return core.PendingCheckout{
		Nonce: record.Nonce,
		Payer: record.Payer,
		Legs:  append([]core.CheckoutLeg(nil), record.Legs...),
		Continuation: core.GrantContinuation{
			URI:         record.ContinueURI,
			AccessToken: record.ContinueToken,
			Wait:        record.ContinueWait,
		},
		CreatedAt: record.CreatedAt.UTC(),
		ExpiresAt: record.ExpiresAt.UTC(),
	}
}
