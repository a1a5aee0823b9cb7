package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PurchasesTotal    *prometheus.CounterVec
	UnitsSoldTotal    prometheus.Counter
	RestocksTotal     prometheus.Counter
	AuthAttemptsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweetshop_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sweetshop_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PurchasesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweetshop_purchases_total",
				Help: "Purchase attempts by result",
			},
			[]string{"result"},
		),
		UnitsSoldTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sweetshop_units_sold_total",
			Help: "Units removed from stock by purchases",
		}),
		RestocksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sweetshop_restocks_total",
			Help: "Successful restock operations",
		}),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweetshop_auth_attempts_total",
				Help: "Register and login attempts by result",
			},
			[]string{"op", "result"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PurchasesTotal,
		m.UnitsSoldTotal,
		m.RestocksTotal,
		m.AuthAttemptsTotal,
	)
	return m
}

// NewWithRuntime also registers the Go runtime and process collectors.
func NewWithRuntime() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) Purchase(result string, units int) {
	if m == nil {
		return
	}
	m.PurchasesTotal.WithLabelValues(result).Inc()
	if result == "ok" && units > 0 {
		m.UnitsSoldTotal.Add(float64(units))
	}
}

func (m *Metrics) Restock() {
	if m == nil {
		return
	}
	m.RestocksTotal.Inc()
}

func (m *Metrics) Auth(op, result string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(op, result).Inc()
}
