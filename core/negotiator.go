package core

import (
	"context"
	"fmt"
	"strings"
)

// GrantNegotiator requests grants from wallet auth servers and continues
// interactive grants once the payer has consented.
type GrantNegotiator struct {
	service *Service
}

func (n *GrantNegotiator) RequestNonInteractive(ctx context.Context, authServer string, access AccessItem) (AccessToken, error) {
	if err := n.ready(); err != nil {
		return AccessToken{}, err
	}
	grant, err := callUpstream(ctx, n.service, "request grant",
		map[string]any{"auth_server": authServer, "access_type": access.Type},
		func(ctx context.Context) (Grant, error) {
			grant, err := n.service.network.RequestGrant(ctx, authServer, GrantRequest{
				Access: []AccessItem{access},
			})
			if err != nil {
				return Grant{}, err
			}
			if grant.AccessToken == nil || strings.TrimSpace(grant.AccessToken.Value) == "" {
				return Grant{}, fmt.Errorf("core: %s grant was not issued an access token", access.Type)
			}
			return grant, nil
		},
	)
	if err != nil {
		return AccessToken{}, err
	}
	return *grant.AccessToken, nil
}

// RequestInteractive asks for a grant that needs payer consent. The finish
// redirect carries a fresh nonce back to finishBase.
func (n *GrantNegotiator) RequestInteractive(ctx context.Context, authServer string, access AccessItem, finishBase string) (InteractiveGrant, error) {
	if err := n.ready(); err != nil {
		return InteractiveGrant{}, err
	}
	if strings.TrimSpace(finishBase) == "" {
		return InteractiveGrant{}, ConfigurationError("core: base url is not configured", "base_url")
	}

	nonce, err := n.service.nonceGenerator()
	if err != nil {
		return InteractiveGrant{}, fmt.Errorf("core: generate nonce: %w", err)
	}
	finish := n.service.config
	finish.BaseURL = finishBase

	request := GrantRequest{
		Access: []AccessItem{access},
		Interact: &InteractRequest{
			Start: []string{InteractStartRedirect},
			Finish: &InteractFinish{
				Method: InteractFinishRedirect,
				URI:    finish.callbackURL(nonce),
				Nonce:  nonce,
			},
		},
	}
	grant, err := callUpstream(ctx, n.service, "request interactive grant",
		map[string]any{"auth_server": authServer, "access_type": access.Type},
		func(ctx context.Context) (Grant, error) {
			grant, err := n.service.network.RequestGrant(ctx, authServer, request)
			if err != nil {
				return Grant{}, err
			}
			if grant.Interact == nil || strings.TrimSpace(grant.Interact.Redirect) == "" {
				return Grant{}, fmt.Errorf("core: %s grant did not return an interaction redirect", access.Type)
			}
			if grant.Continue == nil || strings.TrimSpace(grant.Continue.URI) == "" {
				return Grant{}, fmt.Errorf("core: %s grant did not return a continuation", access.Type)
			}
			return grant, nil
		},
	)
	if err != nil {
		return InteractiveGrant{}, err
	}
	return InteractiveGrant{
		RedirectURL:  grant.Interact.Redirect,
		Continuation: *grant.Continue,
		Nonce:        nonce,
	}, nil
}

// Continue exchanges interactRef for the access token. A continuation can
// only be used once.
func (n *GrantNegotiator) Continue(ctx context.Context, continuation GrantContinuation, interactRef string) (AccessToken, error) {
	if err := n.ready(); err != nil {
		return AccessToken{}, err
	}
	if strings.TrimSpace(interactRef) == "" {
		return AccessToken{}, ValidationError("interact_ref", "interact_ref is required")
	}
	grant, err := callUpstream(ctx, n.service, "continue grant",
		map[string]any{"continue_uri": continuation.URI},
		func(ctx context.Context) (Grant, error) {
			grant, err := n.service.network.ContinueGrant(ctx, continuation, interactRef)
			if err != nil {
				return Grant{}, err
			}
			if grant.AccessToken == nil || strings.TrimSpace(grant.AccessToken.Value) == "" {
				return Grant{}, fmt.Errorf("core: continued grant was not issued an access token")
			}
			return grant, nil
		},
	)
	if err != nil {
		return AccessToken{}, err
	}
	return *grant.AccessToken, nil
}

func (n *GrantNegotiator) ready() error {
	if n == nil || n.service == nil || n.service.network == nil {
		return ConfigurationError("core: grant negotiator is not configured")
	}
	if missing := n.service.config.missingCredentials(); len(missing) > 0 {
		return ConfigurationError(
			"core: client identity is not configured: missing "+strings.Join(missing, ", "),
			missing...,
		)
	}
	return nil
}
