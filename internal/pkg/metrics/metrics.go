package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BillingCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "billing",
		Name:      "cycles_total",
		Help:      "Subscription cycles by outcome.",
	}, []string{"outcome"})

	BillingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "billing",
		Name:      "runs_total",
		Help:      "Billing runs by result.",
	}, []string{"result"})

	BillingRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "portal",
		Subsystem: "billing",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full billing run.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	InvoicesOverdue = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "billing",
		Name:      "invoices_overdue_total",
		Help:      "Invoices moved to overdue by the sweep.",
	})

	MailDispatch = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "mail",
		Name:      "dispatch_total",
		Help:      "Outbound mail by result (sent, fallback).",
	}, []string{"result"})
)

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
