package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-splitpay/core"
	splitmigrations "github.com/goliatone/go-splitpay/migrations"
	sqlstore "github.com/goliatone/go-splitpay/store/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-splitpay-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"splitpay_pending_checkouts",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "splitpay_pending_checkouts" {
		t.Fatalf("expected pending checkouts table, got %q", tableName)
	}
}

func TestPendingCheckoutStore_PutTakeRoundTrip(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client,
		sqlstore.WithTTL(10*time.Minute),
		sqlstore.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	store := factory.PendingCheckoutStore()

	pending := samplePendingCheckout("nonce-roundtrip")
	if err := store.Put(ctx, pending); err != nil {
		t.Fatalf("put: %v", err)
	}
	count, err := store.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected one stored checkout, got %d %v", count, err)
	}

	got, err := store.Take(ctx, "nonce-roundtrip")
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if got.Payer.ID != pending.Payer.ID || got.Payer.AssetScale != 2 {
		t.Fatalf("expected payer to survive storage, got %#v", got.Payer)
	}
	if len(got.Legs) != 2 || got.Legs[1].Role != core.LegRolePlatform {
		t.Fatalf("expected both legs in order, got %#v", got.Legs)
	}
	if got.Legs[0].Quote.DebitAmount.Value != "9900" {
		t.Fatalf("expected merchant quote debit 9900, got %q", got.Legs[0].Quote.DebitAmount.Value)
	}
	if got.Continuation.URI != "https://auth.example/continue/1" || got.Continuation.AccessToken != "continue-token" {
		t.Fatalf("expected continuation to survive storage, got %#v", got.Continuation)
	}
	if !got.CreatedAt.Equal(now) || !got.ExpiresAt.Equal(now.Add(10*time.Minute)) {
		t.Fatalf("expected stamped timestamps, got %s %s", got.CreatedAt, got.ExpiresAt)
	}

	if _, err := store.Take(ctx, "nonce-roundtrip"); !errors.Is(err, core.ErrPendingCheckoutNotFound) {
		t.Fatalf("expected second take to miss, got %v", err)
	}
}

func TestPendingCheckoutStore_PutReplacesReusedNonce(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()
	ctx := context.Background()

	store, err := sqlstore.NewPendingCheckoutStore(client.DB())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	first := samplePendingCheckout("nonce-dup")
	if err := store.Put(ctx, first); err != nil {
		t.Fatalf("first put: %v", err)
	}
	second := samplePendingCheckout("nonce-dup")
	second.Payer.ID = "https://wallet.example/bob"
	if err := store.Put(ctx, second); err != nil {
		t.Fatalf("second put: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected one stored checkout after reuse, got %d %v", count, err)
	}
	got, err := store.Take(ctx, "nonce-dup")
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if got.Payer.ID != "https://wallet.example/bob" {
		t.Fatalf("expected last write to win, got payer %q", got.Payer.ID)
	}
}

func TestPendingCheckoutStore_TakeExpired(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := sqlstore.NewPendingCheckoutStore(client.DB(), sqlstore.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	pending := samplePendingCheckout("nonce-old")
	pending.CreatedAt = now.Add(-time.Hour)
	pending.ExpiresAt = now.Add(-time.Minute)
	if err := store.Put(ctx, pending); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Take(ctx, "nonce-old"); !errors.Is(err, core.ErrPendingCheckoutNotFound) {
		t.Fatalf("expected expired checkout to be not found, got %v", err)
	}
	count, err := store.Count(ctx)
	if err != nil || count != 0 {
		t.Fatalf("expected expired checkout to be consumed, got %d %v", count, err)
	}
}

func TestPendingCheckoutStore_SweepRemovesOnlyExpired(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := sqlstore.NewPendingCheckoutStore(client.DB(), sqlstore.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for i, offset := range []time.Duration{-2 * time.Hour, -time.Hour, time.Hour} {
		pending := samplePendingCheckout(fmt.Sprintf("nonce-%d", i))
		pending.CreatedAt = now.Add(offset - time.Minute)
		pending.ExpiresAt = now.Add(offset)
		if err := store.Put(ctx, pending); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	removed, err := store.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 expired checkouts removed, got %d", removed)
	}
	if _, err := store.Take(ctx, "nonce-2"); err != nil {
		t.Fatalf("expected live checkout to survive sweep: %v", err)
	}
}

func TestPendingCheckoutStore_ConcurrentTakeSingleWinner(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()
	ctx := context.Background()

	store, err := sqlstore.NewPendingCheckoutStore(client.DB())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Put(ctx, samplePendingCheckout("nonce-race")); err != nil {
		t.Fatalf("put: %v", err)
	}

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Take(ctx, "nonce-race"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one successful take, got %d", winners)
	}
}

func TestPendingCheckoutStore_Validation(t *testing.T) {
	if _, err := sqlstore.NewPendingCheckoutStore(nil); err == nil {
		t.Fatalf("expected bun db requirement")
	}
	if _, err := sqlstore.NewRepositoryFactoryFromDB(nil); err == nil {
		t.Fatalf("expected persistence client requirement")
	}

	client, cleanup := newSQLiteClient(t)
	defer cleanup()
	store, err := sqlstore.NewPendingCheckoutStore(client.DB())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Put(context.Background(), core.PendingCheckout{Nonce: "  "}); err == nil {
		t.Fatalf("expected nonce requirement")
	}
	if _, err := store.Take(context.Background(), ""); !errors.Is(err, core.ErrPendingCheckoutNotFound) {
		t.Fatalf("expected empty nonce to miss, got %v", err)
	}
}

func TestServiceRunsOnSQLPendingStore(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB(), sqlstore.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	expired := samplePendingCheckout("nonce-stale")
	expired.CreatedAt = now.Add(-time.Hour)
	expired.ExpiresAt = now.Add(-time.Second)
	if err := factory.PendingCheckoutStore().Put(ctx, expired); err != nil {
		t.Fatalf("put: %v", err)
	}

	svc, err := core.NewService(core.Config{},
		core.WithNetworkClient(nopNetwork{}),
		core.WithPendingStateStore(factory.PendingStateStore()),
		core.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	removed, err := svc.SweepPending(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one expired checkout swept, got %d", removed)
	}
}

func samplePendingCheckout(nonce string) core.PendingCheckout {
	payer := core.WalletAddress{
		ID:             "https://wallet.example/alice",
		AuthServer:     "https://auth.example",
		ResourceServer: "https://wallet.example",
		AssetCode:      "USD",
		AssetScale:     2,
	}
	merchant := core.WalletAddress{
		ID:             "https://wallet.example/merchant",
		AuthServer:     "https://auth.example",
		ResourceServer: "https://wallet.example",
		AssetCode:      "USD",
		AssetScale:     2,
	}
	platform := merchant
	platform.ID = "https://wallet.example/platform"
	return core.PendingCheckout{
		Nonce: nonce,
		Payer: payer,
		Legs: []core.CheckoutLeg{
			{
				Role:     core.LegRoleMerchant,
				Receiver: merchant,
				Quote: core.Quote{
					ID:          "https://wallet.example/quotes/q1",
					DebitAmount: core.Amount{Value: "9900", AssetCode: "USD", AssetScale: 2},
				},
			},
			{
				Role:     core.LegRolePlatform,
				Receiver: platform,
				Quote: core.Quote{
					ID:          "https://wallet.example/quotes/q2",
					DebitAmount: core.Amount{Value: "100", AssetCode: "USD", AssetScale: 2},
				},
			},
		},
		Continuation: core.GrantContinuation{
			URI:         "https://auth.example/continue/1",
			AccessToken: "continue-token",
		},
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:splitpay-test-%d?mode=memory&cache=shared",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	err = splitmigrations.Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}, splitmigrations.DialectSQLite)
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

type nopNetwork struct{}

func (nopNetwork) GetWalletAddress(context.Context, string) (core.WalletAddress, error) {
	return core.WalletAddress{}, nil
}

func (nopNetwork) RequestGrant(context.Context, string, core.GrantRequest) (core.Grant, error) {
	return core.Grant{}, nil
}

func (nopNetwork) ContinueGrant(context.Context, core.GrantContinuation, string) (core.Grant, error) {
	return core.Grant{}, nil
}

func (nopNetwork) CreateIncomingPayment(context.Context, string, string, core.IncomingPaymentInput) (core.IncomingPayment, error) {
	return core.IncomingPayment{}, nil
}

func (nopNetwork) CreateQuote(context.Context, string, string, core.QuoteInput) (core.Quote, error) {
	return core.Quote{}, nil
}

func (nopNetwork) CreateOutgoingPayment(context.Context, string, string, core.OutgoingPaymentInput) (core.OutgoingPayment, error) {
	return core.OutgoingPayment{}, nil
}
