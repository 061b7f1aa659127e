package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-splitpay/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultPendingTTL = 30 * time.Minute

type PendingCheckoutStore struct {
	db   *bun.DB
	repo repository.Repository[*pendingCheckoutRecord]
	ttl  time.Duration
	now  func() time.Time
}

type PendingCheckoutOption func(*PendingCheckoutStore)

// WithTTL sets the consent window stamped on checkouts stored without an
// expiry.
func WithTTL(ttl time.Duration) PendingCheckoutOption {
	return func(s *PendingCheckoutStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) PendingCheckoutOption {
	return func(s *PendingCheckoutStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewPendingCheckoutStore(db *bun.DB, opts ...PendingCheckoutOption) (*PendingCheckoutStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*pendingCheckoutRecord](db, pendingCheckoutHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid pending checkout repository wiring: %w", err)
		}
	}
	store := &PendingCheckoutStore{
		db:   db,
		repo: repo,
		ttl:  defaultPendingTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *PendingCheckoutStore) Put(ctx context.Context, pending core.PendingCheckout) error {
	if s == nil || s.db == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: pending checkout store is not configured")
	}
	pending.Nonce = strings.TrimSpace(pending.Nonce)
	if pending.Nonce == "" {
		return fmt.Errorf("sqlstore: pending checkout nonce is required")
	}
	now := s.now().UTC()
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = now
	}
	if pending.ExpiresAt.IsZero() {
		pending.ExpiresAt = pending.CreatedAt.Add(s.ttl)
	}

	record := pendingCheckoutToRecord(pending)
	record.ID = uuid.NewString()
	// A reused nonce replaces the earlier checkout.
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*pendingCheckoutRecord)(nil)).
			Where("nonce = ?", pending.Nonce).
			Exec(ctx); err != nil {
			return err
		}
		_, err := s.repo.CreateTx(ctx, tx, record)
		return err
	})
}

// Take deletes the row for nonce and returns what was deleted, so two
// concurrent callbacks for the same nonce cannot both succeed.
func (s *PendingCheckoutStore) Take(ctx context.Context, nonce string) (core.PendingCheckout, error) {
	if s == nil || s.db == nil {
		return core.PendingCheckout{}, fmt.Errorf("sqlstore: pending checkout store is not configured")
	}
	nonce = strings.TrimSpace(nonce)
	if nonce == "" {
		return core.PendingCheckout{}, core.ErrPendingCheckoutNotFound
	}

	var records []pendingCheckoutRecord
	query := `
DELETE FROM splitpay_pending_checkouts
WHERE nonce = ?
RETURNING
	id,
	nonce,
	payer,
	legs,
	continue_uri,
	continue_token,
	continue_wait,
	created_at,
	expires_at
`
	if err := s.db.NewRaw(query, nonce).Scan(ctx, &records); err != nil {
		return core.PendingCheckout{}, err
	}
	if len(records) == 0 {
		return core.PendingCheckout{}, core.ErrPendingCheckoutNotFound
	}
	pending := recordToPendingCheckout(records[0])
	if pending.Expired(s.now().UTC()) {
		return core.PendingCheckout{}, fmt.Errorf("%w: expired", core.ErrPendingCheckoutNotFound)
	}
	return pending, nil
}

func (s *PendingCheckoutStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: pending checkout store is not configured")
	}
	if now.IsZero() {
		now = s.now()
	}
	res, err := s.db.NewDelete().
		Model((*pendingCheckoutRecord)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Count reports how many checkouts are waiting on consent.
func (s *PendingCheckoutStore) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: pending checkout store is not configured")
	}
	return s.db.NewSelect().Model((*pendingCheckoutRecord)(nil)).Count(ctx)
}
