package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-splitpay/core"
)

type MutatingService interface {
	Checkout(ctx context.Context, req core.CheckoutRequest) (core.CheckoutResult, error)
	GroupCheckout(ctx context.Context, req core.GroupCheckoutRequest) (core.GroupCheckoutResult, error)
	CompleteCallback(ctx context.Context, req core.CallbackRequest) (core.CallbackResult, error)
	SweepPending(ctx context.Context) (int, error)
}

type CheckoutCommand struct {
	service MutatingService
}

func NewCheckoutCommand(service MutatingService) *CheckoutCommand {
	return &CheckoutCommand{service: service}
}

func (c *CheckoutCommand) Execute(ctx context.Context, msg CheckoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: checkout service is required")
	}
	out, err := c.service.Checkout(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type GroupCheckoutCommand struct {
	service MutatingService
}

func NewGroupCheckoutCommand(service MutatingService) *GroupCheckoutCommand {
	return &GroupCheckoutCommand{service: service}
}

func (c *GroupCheckoutCommand) Execute(ctx context.Context, msg GroupCheckoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: group checkout service is required")
	}
	out, err := c.service.GroupCheckout(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteCallbackCommand struct {
	service MutatingService
}

func NewCompleteCallbackCommand(service MutatingService) *CompleteCallbackCommand {
	return &CompleteCallbackCommand{service: service}
}

func (c *CompleteCallbackCommand) Execute(ctx context.Context, msg CompleteCallbackMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: callback service is required")
	}
	out, err := c.service.CompleteCallback(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SweepPendingCommand struct {
	service MutatingService
}

func NewSweepPendingCommand(service MutatingService) *SweepPendingCommand {
	return &SweepPendingCommand{service: service}
}

// Execute stores the number of removed flows as the result.
func (c *SweepPendingCommand) Execute(ctx context.Context, _ SweepPendingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pending sweep service is required")
	}
	removed, err := c.service.SweepPending(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, removed)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
