package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-splitpay/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultRequestTimeout = 60 * time.Second

// Service is the subset of the splitpay facade the HTTP surface drives.
type Service interface {
	Checkout(ctx context.Context, req core.CheckoutRequest) (core.CheckoutResult, error)
	GroupCheckout(ctx context.Context, req core.GroupCheckoutRequest) (core.GroupCheckoutResult, error)
	CompleteCallback(ctx context.Context, req core.CallbackRequest) (core.CallbackResult, error)
	CompareFX(ctx context.Context, req core.FXCompareRequest) (core.FXComparison, error)
	SupportedCurrencies(ctx context.Context) ([]string, error)
}

// API serves the checkout, callback, group checkout and FX endpoints.
type API struct {
	service        Service
	logger         glog.Logger
	baseURL        string
	gatherer       prometheus.Gatherer
	requestTimeout time.Duration
	startedAt      time.Time
	now            func() time.Time
}

type Option func(*API)

func WithLogger(logger glog.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithBaseURL sets the public origin the callback URL is built from. Without
// it every checkout is rejected as misconfigured.
func WithBaseURL(baseURL string) Option {
	return func(a *API) {
		a.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(a *API) {
		if gatherer != nil {
			a.gatherer = gatherer
		}
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(a *API) {
		if timeout > 0 {
			a.requestTimeout = timeout
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *API) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAPI(service Service, opts ...Option) *API {
	api := &API{
		service:        service,
		logger:         glog.Nop(),
		gatherer:       prometheus.DefaultGatherer,
		requestTimeout: defaultRequestTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	api.startedAt = api.now()
	return api
}

// Router returns a chi router with the middleware stack and every route
// mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.requestTimeout))
	a.AppendRoutes(r)
	return r
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Get("/health", a.health)
	r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/split/checkout", a.checkout)
		r.Post("/split/group-checkout", a.groupCheckout)
		r.Get("/op/callback", a.callback)
		r.Post("/fx/compare", a.compareFX)
		r.Get("/fx/currencies", a.currencies)
	})
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.logger.WithContext(r.Context()).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
