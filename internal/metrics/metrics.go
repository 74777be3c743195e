// Package metrics exposes Prometheus collectors for HTTP traffic and
// ledger activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stall_rental"

type Metrics struct {
	registry      *prometheus.Registry
	httpReqCnt    *prometheus.CounterVec
	httpDur       *prometheus.HistogramVec
	httpInfl      *prometheus.GaugeVec
	paymentsCnt   *prometheus.CounterVec
	paymentsCents *prometheus.CounterVec
	banOps        *prometheus.CounterVec
	receiptRetry  prometheus.Counter
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Buckets: prometheus.DefBuckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	paymentsCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "payments_recorded_total"}, []string{"source"})
	paymentsCents := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "payments_recorded_cents_total"}, []string{"source"})
	banOps := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "ban_deposit_operations_total"}, []string{"operation"})
	receiptRetry := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "receipt_number_collisions_total"})
	r.MustRegister(paymentsCnt, paymentsCents, banOps, receiptRetry)

	return &Metrics{
		registry:      r,
		httpReqCnt:    httpReqCnt,
		httpDur:       httpDur,
		httpInfl:      httpInfl,
		paymentsCnt:   paymentsCnt,
		paymentsCents: paymentsCents,
		banOps:        banOps,
		receiptRetry:  receiptRetry,
	}
}

// PaymentsRecorded counts a committed payment batch.
func (m *Metrics) PaymentsRecorded(source string, count int, totalCents int64) {
	m.paymentsCnt.WithLabelValues(source).Add(float64(count))
	m.paymentsCents.WithLabelValues(source).Add(float64(totalCents))
}

// BanDepositChanged counts a committed pay or compensate operation.
func (m *Metrics) BanDepositChanged(operation string) {
	m.banOps.WithLabelValues(operation).Inc()
}

// ReceiptCollision counts a resampled OR number.
func (m *Metrics) ReceiptCollision() {
	m.receiptRetry.Inc()
}

// Middleware records count, latency and in-flight requests per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			m.httpInfl.WithLabelValues(route).Inc()
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := strconv.Itoa(c.Response().Status)
			m.httpReqCnt.WithLabelValues(c.Request().Method, route, status).Inc()
			m.httpDur.WithLabelValues(c.Request().Method, route, status).Observe(time.Since(start).Seconds())
			m.httpInfl.WithLabelValues(route).Dec()
			return nil
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
