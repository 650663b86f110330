package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSucceeded = "succeeded"
	resultRejected  = "rejected"
	resultFailed    = "failed"
)

var checkoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "checkouts_total",
		Help:      "Checkouts attempted, by result and payment method.",
	},
	[]string{"result", "payment_method"},
)
