package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailed  = "failed"
	outcomeApplied = "applied"
	outcomeStale   = "stale"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart_store",
		Name:      "mutations_total",
		Help:      "Cart store mutations by operation and outcome.",
	}, []string{"operation", "outcome"})

	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart_store",
		Name:      "fetches_total",
		Help:      "Cart fetches by outcome; stale responses are discarded.",
	}, []string{"outcome"})
)

func countMutation(operation string, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailed
	}
	mutationsTotal.WithLabelValues(operation, outcome).Inc()
}
