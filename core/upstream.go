package core

import (
	"context"
	"net/http"

	"github.com/avast/retry-go"
	goerrors "github.com/goliatone/go-errors"
)

// callUpstream runs one network call under the configured deadline and
// attempt budget. Any failure comes back as a ResolutionError for step.
func callUpstream[T any](
	ctx context.Context,
	s *Service,
	step string,
	fields map[string]any,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	return runUpstream(ctx, s, step, fields, s.config.Upstream.RetryAttempts, fn)
}

// callUpstreamOnce is callUpstream for creates that move or reserve funds.
// A timed out attempt may still have been accepted upstream, so it is never
// resubmitted.
func callUpstreamOnce[T any](
	ctx context.Context,
	s *Service,
	step string,
	fields map[string]any,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	return runUpstream(ctx, s, step, fields, 1, fn)
}

func runUpstream[T any](
	ctx context.Context,
	s *Service,
	step string,
	fields map[string]any,
	attempts int,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	policy := s.config.Upstream
	if attempts < 1 {
		attempts = 1
	}

	var out T
	err := retry.Do(
		func() error {
			callCtx := ctx
			cancel := func() {}
			if policy.Timeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
			}
			defer cancel()

			result, callErr := fn(callCtx)
			if callErr != nil {
				return callErr
			}
			out = result
			return nil
		},
		retry.Attempts(uint(attempts)),
		retry.Delay(policy.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && retryableUpstreamError(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			logFields := cloneFields(fields)
			logFields["step"] = step
			logFields["attempt"] = n + 1
			logFields["error"] = err.Error()
			s.logWarn(ctx, "upstream call attempt failed", logFields)
		}),
	)
	if err != nil {
		return zero, ResolutionError(err, step, fields)
	}
	return out, nil
}

// retryableUpstreamError rejects client errors reported by the network;
// resubmitting the same request cannot fix them.
func retryableUpstreamError(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return true
	}
	if rich.Code == http.StatusTooManyRequests {
		return true
	}
	return rich.Code < 400 || rich.Code >= 500
}
