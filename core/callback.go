package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sourcegraph/conc/iter"
)

const CallbackStatusOK = "ok"

// CompleteCallback finishes a consent flow: it consumes the pending checkout
// for the nonce, continues the grant, and creates one outgoing payment per
// leg. Every leg is attempted; created payments are never rolled back when a
// sibling fails.
func (s *Service) CompleteCallback(ctx context.Context, req CallbackRequest) (result CallbackResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"nonce": req.Nonce}
	defer func() {
		if result.Payer != "" {
			fields["payer"] = result.Payer
			fields["outgoing_payments"] = len(result.OutgoingPayments)
		}
		s.observeOperation(ctx, startedAt, "complete_callback", err, fields)
	}()

	if s == nil {
		return CallbackResult{}, fmt.Errorf("core: service is nil")
	}
	nonce := strings.TrimSpace(req.Nonce)
	interactRef := strings.TrimSpace(req.InteractRef)
	if nonce == "" {
		return CallbackResult{}, s.mapError(ValidationError("nonce", "nonce is required"))
	}
	if interactRef == "" {
		return CallbackResult{}, s.mapError(ValidationError("interact_ref", "interact_ref is required"))
	}

	pending, err := s.pendingStore.Take(ctx, nonce)
	if err != nil {
		if errors.Is(err, ErrPendingCheckoutNotFound) {
			return CallbackResult{}, s.mapError(FlowNotFoundError(nonce))
		}
		return CallbackResult{}, s.mapError(err)
	}
	fields["asset_code"] = pending.Payer.AssetCode
	if len(pending.Legs) == 0 {
		return CallbackResult{}, s.mapError(ValidationError("nonce", "pending checkout has no payment legs"))
	}

	token, err := s.negotiator.Continue(ctx, pending.Continuation, interactRef)
	if err != nil {
		return CallbackResult{}, s.mapError(err)
	}

	payments := make([]OutgoingPayment, len(pending.Legs))
	failures := make([]error, len(pending.Legs))
	iter.ForEachIdx(pending.Legs, func(i int, leg *CheckoutLeg) {
		payments[i], failures[i] = s.createOutgoingPayment(ctx, pending.Payer, token, leg.Quote)
	})

	created := make([]OutgoingPayment, 0, len(payments))
	createdIDs := make([]string, 0, len(payments))
	failedQuotes := make([]string, 0)
	var firstFailure error
	for i, failure := range failures {
		if failure != nil {
			failedQuotes = append(failedQuotes, pending.Legs[i].Quote.ID)
			if firstFailure == nil {
				firstFailure = failure
			}
			continue
		}
		created = append(created, payments[i])
		createdIDs = append(createdIDs, payments[i].ID)
	}
	if firstFailure != nil {
		return CallbackResult{}, s.mapError(partialCallbackError(firstFailure, nonce, createdIDs, failedQuotes))
	}

	return CallbackResult{
		Status:           CallbackStatusOK,
		Payer:            pending.Payer.ID,
		OutgoingPayments: created,
	}, nil
}

// partialCallbackError reports which legs were paid so the rest can be
// settled by hand.
func partialCallbackError(failure error, nonce string, createdIDs []string, failedQuotes []string) *goerrors.Error {
	var rich *goerrors.Error
	if !goerrors.As(failure, &rich) || rich.TextCode != ServiceErrorResolutionFailed {
		rich = ResolutionError(failure, "create outgoing payment", nil)
	}
	return rich.WithMetadata(map[string]any{
		"nonce":               nonce,
		"created_payment_ids": createdIDs,
		"failed_quote_ids":    failedQuotes,
	})
}
