package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-splitpay/core"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	pendingCheckoutStore *PendingCheckoutStore
	pendingOptions       []PendingCheckoutOption
}

func NewRepositoryFactory(opts ...PendingCheckoutOption) *RepositoryFactory {
	return &RepositoryFactory{pendingOptions: opts}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...PendingCheckoutOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...PendingCheckoutOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores accepts a *bun.DB or anything exposing DB() *bun.DB, such as
// a go-persistence-bun client.
func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.pendingCheckoutStore != nil {
		return nil
	}
	store, err := NewPendingCheckoutStore(f.db, f.pendingOptions...)
	if err != nil {
		return err
	}
	f.pendingCheckoutStore = store
	return nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) PendingCheckoutStore() *PendingCheckoutStore {
	if f == nil {
		return nil
	}
	return f.pendingCheckoutStore
}

// PendingStateStore returns the store typed for core.WithPendingStateStore.
func (f *RepositoryFactory) PendingStateStore() core.PendingStateStore {
	if f == nil || f.pendingCheckoutStore == nil {
		return nil
	}
	return f.pendingCheckoutStore
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
