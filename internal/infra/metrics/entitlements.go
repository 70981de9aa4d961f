package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		entitlementsTotal,
		notificationsTotal,
	)
}

var (
	// kind: subscription|enrollment
	entitlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlements_activated_total",
			Help: "Entitlement activations by kind.",
		},
		[]string{"kind"},
	)

	// status: sent|error
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_notifications_total",
			Help: "Subscription-started notifications by delivery status.",
		},
		[]string{"status"},
	)
)

func IncEntitlement(kind string) {
	entitlementsTotal.WithLabelValues(norm(kind)).Inc()
}

func IncNotification(status string) {
	notificationsTotal.WithLabelValues(norm(status)).Inc()
}
