package splitpay

import (
	"context"
	"fmt"

	gocmd "github.com/goliatone/go-command"
	splitcommand "github.com/goliatone/go-splitpay/command"
	"github.com/goliatone/go-splitpay/core"
	splitquery "github.com/goliatone/go-splitpay/query"
)

type CommandQueryService interface {
	splitcommand.MutatingService
	splitquery.FXReader
}

type Commands struct {
	Checkout         *splitcommand.CheckoutCommand
	GroupCheckout    *splitcommand.GroupCheckoutCommand
	CompleteCallback *splitcommand.CompleteCallbackCommand
	SweepPending     *splitcommand.SweepPendingCommand
}

type Queries struct {
	CompareFX           *splitquery.CompareFXQuery
	SupportedCurrencies *splitquery.SupportedCurrenciesQuery
}

// Facade bundles the command and query handlers over one service. Its typed
// helpers validate the message before the handler runs, so rejected input
// never reaches the network.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("splitpay: command/query service is required")
	}
	facade := &Facade{service: service}
	facade.commands = Commands{
		Checkout:         splitcommand.NewCheckoutCommand(service),
		GroupCheckout:    splitcommand.NewGroupCheckoutCommand(service),
		CompleteCallback: splitcommand.NewCompleteCallbackCommand(service),
		SweepPending:     splitcommand.NewSweepPendingCommand(service),
	}
	facade.queries = Queries{
		CompareFX:           splitquery.NewCompareFXQuery(service),
		SupportedCurrencies: splitquery.NewSupportedCurrenciesQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func (f *Facade) Checkout(ctx context.Context, req core.CheckoutRequest) (core.CheckoutResult, error) {
	if f == nil {
		return core.CheckoutResult{}, fmt.Errorf("splitpay: facade is nil")
	}
	return execute[splitcommand.CheckoutMessage, core.CheckoutResult](
		ctx, f.commands.Checkout, splitcommand.CheckoutMessage{Request: req},
	)
}

func (f *Facade) GroupCheckout(ctx context.Context, req core.GroupCheckoutRequest) (core.GroupCheckoutResult, error) {
	if f == nil {
		return core.GroupCheckoutResult{}, fmt.Errorf("splitpay: facade is nil")
	}
	return execute[splitcommand.GroupCheckoutMessage, core.GroupCheckoutResult](
		ctx, f.commands.GroupCheckout, splitcommand.GroupCheckoutMessage{Request: req},
	)
}

func (f *Facade) CompleteCallback(ctx context.Context, req core.CallbackRequest) (core.CallbackResult, error) {
	if f == nil {
		return core.CallbackResult{}, fmt.Errorf("splitpay: facade is nil")
	}
	return execute[splitcommand.CompleteCallbackMessage, core.CallbackResult](
		ctx, f.commands.CompleteCallback, splitcommand.CompleteCallbackMessage{Request: req},
	)
}

func (f *Facade) SweepPending(ctx context.Context) (int, error) {
	if f == nil {
		return 0, fmt.Errorf("splitpay: facade is nil")
	}
	return execute[splitcommand.SweepPendingMessage, int](
		ctx, f.commands.SweepPending, splitcommand.SweepPendingMessage{},
	)
}

func (f *Facade) CompareFX(ctx context.Context, req core.FXCompareRequest) (core.FXComparison, error) {
	if f == nil {
		return core.FXComparison{}, fmt.Errorf("splitpay: facade is nil")
	}
	msg := splitquery.CompareFXMessage{Request: req}
	if err := msg.Validate(); err != nil {
		return core.FXComparison{}, err
	}
	return f.queries.CompareFX.Query(ctx, msg)
}

func (f *Facade) SupportedCurrencies(ctx context.Context) ([]string, error) {
	if f == nil {
		return nil, fmt.Errorf("splitpay: facade is nil")
	}
	return f.queries.SupportedCurrencies.Query(ctx, splitquery.SupportedCurrenciesMessage{})
}

type validatable interface {
	Validate() error
}

func execute[T validatable, R any](ctx context.Context, cmd gocmd.Commander[T], msg T) (R, error) {
	var zero R
	if err := msg.Validate(); err != nil {
		return zero, err
	}
	collector := gocmd.NewResult[R]()
	if err := cmd.Execute(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return zero, err
	}
	out, _ := collector.Load()
	return out, nil
}
