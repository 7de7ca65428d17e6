package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// Metrics groups the storefront collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	checkouts       *prometheus.CounterVec
	ordersCreated   prometheus.Counter
	payments        *prometheus.CounterVec
	paymentDuration prometheus.Histogram
	cartMutations   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		checkouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout submissions by outcome",
		}, []string{"result"}),
		ordersCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Remote orders created by the submission sequencer",
		}),
		payments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment attempts by outcome",
		}, []string{"result"}),
		paymentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_duration_seconds",
			Help:      "Time spent processing a payment, including the simulated delay",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10},
		}),
		cartMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and outcome",
		}, []string{"op", "result"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 3200},
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) CheckoutSubmitted(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
}

func (m *Metrics) OrdersCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ordersCreated.Add(float64(n))
}

func (m *Metrics) PaymentProcessed(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(result).Inc()
	m.paymentDuration.Observe(d.Seconds())
}

func (m *Metrics) CartMutation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cartMutations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(float64(d.Milliseconds()))
}
