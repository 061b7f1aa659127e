package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// NetworkClient is the Open Payments capability the orchestration depends on.
// Implementations own request signing and wire encoding.
type NetworkClient interface {
	GetWalletAddress(ctx context.Context, url string) (WalletAddress, error)
	RequestGrant(ctx context.Context, authServer string, req GrantRequest) (Grant, error)
	ContinueGrant(ctx context.Context, continuation GrantContinuation, interactRef string) (Grant, error)
	CreateIncomingPayment(ctx context.Context, resourceServer string, accessToken string, in IncomingPaymentInput) (IncomingPayment, error)
	CreateQuote(ctx context.Context, resourceServer string, accessToken string, in QuoteInput) (Quote, error)
	CreateOutgoingPayment(ctx context.Context, resourceServer string, accessToken string, in OutgoingPaymentInput) (OutgoingPayment, error)
}

// PendingStateStore holds pending checkouts keyed by nonce. Take must be an
// atomic read-and-remove; a second Take of the same nonce reports
// ErrPendingCheckoutNotFound.
type PendingStateStore interface {
	Put(ctx context.Context, pending PendingCheckout) error
	Take(ctx context.Context, nonce string) (PendingCheckout, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type MarketRateSource interface {
	MarketRate(ctx context.Context, from string, to string) (MarketRate, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
