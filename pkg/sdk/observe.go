package pkgdex

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// searchTypeNone labels searches that failed before a mode was chosen.
const searchTypeNone = "none"

type sdkMetrics struct {
	searches *prometheus.CounterVec
	duration *prometheus.HistogramVec
	returned prometheus.Histogram
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pkgdex",
			Subsystem: "sdk",
			Name:      "searches_total",
			Help:      "In-process searches by search type and outcome.",
		}, []string{"search_type", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pkgdex",
			Subsystem: "sdk",
			Name:      "search_duration_seconds",
			Help:      "In-process search latency.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"search_type"}),
		returned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pkgdex",
			Subsystem: "sdk",
			Name:      "search_packages_returned",
			Help:      "Packages on the returned page.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
	if err := registerOrReuse(reg, &m.searches); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.returned); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse lets several clients share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("pkgdex: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("pkgdex: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and counts Client.Search calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observeSearch(q *Query, res *Results, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	searchType := searchTypeNone
	if err == nil && res.SearchType != "" {
		searchType = string(res.SearchType)
	}

	if m := o.metrics; m != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.searches.WithLabelValues(searchType, status).Inc()
		m.duration.WithLabelValues(searchType).Observe(dur.Seconds())
		if err == nil {
			m.returned.Observe(float64(len(res.Packages)))
		}
	}

	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("search failed",
			"query", q.Text,
			"mode", string(q.Mode),
			"duration", dur,
			"error", err,
		)
		return
	}
	o.logger.Debug("search completed",
		"query", q.Text,
		"search_type", searchType,
		"total", res.TotalCount,
		"returned", len(res.Packages),
		"duration", dur,
	)
}
