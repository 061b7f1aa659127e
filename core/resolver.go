package core

import (
	"context"
	"strings"
)

// WalletAddressResolver discovers wallet metadata with an unauthenticated
// call. Results are never cached.
type WalletAddressResolver struct {
	service *Service
}

func (r *WalletAddressResolver) Resolve(ctx context.Context, identifier string) (WalletAddress, error) {
	if r == nil || r.service == nil || r.service.network == nil {
		return WalletAddress{}, ConfigurationError("core: wallet address resolver is not configured")
	}
	if strings.TrimSpace(identifier) == "" {
		return WalletAddress{}, ValidationError("walletAddress", "wallet address is required")
	}
	return callUpstream(ctx, r.service, "resolve wallet address",
		map[string]any{"wallet_address": identifier},
		func(ctx context.Context) (WalletAddress, error) {
			wallet, err := r.service.network.GetWalletAddress(ctx, identifier)
			if err != nil {
				return WalletAddress{}, err
			}
			if err := wallet.Validate(); err != nil {
				return WalletAddress{}, err
			}
			return wallet, nil
		},
	)
}

// ResolveAll resolves every identifier concurrently; output order matches
// input order and any single failure fails the batch.
func (r *WalletAddressResolver) ResolveAll(ctx context.Context, identifiers ...string) ([]WalletAddress, error) {
	wallets := make([]WalletAddress, len(identifiers))
	err := fanOutEach(ctx, len(identifiers), func(ctx context.Context, i int) error {
		wallet, err := r.Resolve(ctx, identifiers[i])
		if err != nil {
			return err
		}
		wallets[i] = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallets, nil
}
