package rates

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	errorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitpay_market_rate_errors_total",
		Help: "Market rate provider failures, by provider.",
	}, []string{"source"})
)
