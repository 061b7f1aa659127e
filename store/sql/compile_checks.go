package sqlstore

import "github.com/goliatone/go-splitpay/core"

var _ core.PendingStateStore = (*PendingCheckoutStore)(nil)
