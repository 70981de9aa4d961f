package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		reconcileTotal,
		verifyDuration,
		callbackTotal,
	)
}

var (
	// source:  callback|admin|sweeper
	// outcome: success|already_processed|token_missing|payment_not_found|
	//          declined|verify_error|callback_error
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconcile_total",
			Help: "Reconciliation attempts by trigger source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_verify_duration_seconds",
			Help:    "Duration of checkout gateway verify calls in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
		[]string{"result"},
	)

	// transport: get|post
	callbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callback_total",
			Help: "Inbound /payment-callback deliveries by HTTP method.",
		},
		[]string{"method"},
	)
)

func IncReconcile(source, outcome string) {
	reconcileTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func ObserveVerifyDuration(result string, seconds float64) {
	verifyDuration.WithLabelValues(norm(result)).Observe(seconds)
}

func IncCallback(method string) {
	callbackTotal.WithLabelValues(norm(method)).Inc()
}
