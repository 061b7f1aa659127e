package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CheckoutMessage]         = (*CheckoutCommand)(nil)
	_ gocmd.Commander[GroupCheckoutMessage]    = (*GroupCheckoutCommand)(nil)
	_ gocmd.Commander[CompleteCallbackMessage] = (*CompleteCallbackCommand)(nil)
	_ gocmd.Commander[SweepPendingMessage]     = (*SweepPendingCommand)(nil)
)
