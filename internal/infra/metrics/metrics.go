package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups the service's Prometheus instruments. A nil *Collectors is
// valid and records nothing, which keeps components usable without metrics.
type Collectors struct {
	cacheOps          *prometheus.CounterVec
	cacheFallbacks    *prometheus.CounterVec
	cacheRemoteUp     prometheus.Gauge
	pollTicks         *prometheus.CounterVec
	pollDuration      prometheus.Histogram
	alertsTriggered   *prometheus.CounterVec
	webhookAttempts   *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
}

func New(namespace string, reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_operations_total",
				Help:      "Cache operations by backend, operation and result",
			},
			[]string{"backend", "operation", "result"},
		),
		cacheFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_fallbacks_total",
				Help:      "Operations rerouted to the in-memory store after a remote failure",
			},
			[]string{"operation"},
		),
		cacheRemoteUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_remote_available",
				Help:      "1 when the remote cache backend is considered available",
			},
		),
		pollTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_ticks_total",
				Help:      "Price poll ticks by result",
			},
			[]string{"result"},
		),
		pollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "poll_tick_duration_seconds",
				Help:      "Duration of a price poll tick",
				Buckets:   prometheus.DefBuckets,
			},
		),
		alertsTriggered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_triggered_total",
				Help:      "Price alerts triggered by direction",
			},
			[]string{"direction"},
		),
		webhookAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_attempts_total",
				Help:      "Webhook HTTP attempts by result",
			},
			[]string{"result"},
		),
		webhookDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Webhook deliveries by terminal state",
			},
			[]string{"event", "state"},
		),
	}

	if reg != nil {
		for _, collector := range []prometheus.Collector{
			c.cacheOps, c.cacheFallbacks, c.cacheRemoteUp, c.pollTicks, c.pollDuration,
			c.alertsTriggered, c.webhookAttempts, c.webhookDeliveries,
		} {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Collectors) CacheOperation(backend, operation string, err error) {
	if c == nil {
		return
	}
	c.cacheOps.WithLabelValues(backend, operation, result(err)).Inc()
}

func (c *Collectors) CacheFallback(operation string) {
	if c == nil {
		return
	}
	c.cacheFallbacks.WithLabelValues(operation).Inc()
}

func (c *Collectors) CacheRemoteAvailable(available bool) {
	if c == nil {
		return
	}
	if available {
		c.cacheRemoteUp.Set(1)
		return
	}
	c.cacheRemoteUp.Set(0)
}

func (c *Collectors) PollTick(seconds float64, err error) {
	if c == nil {
		return
	}
	c.pollTicks.WithLabelValues(result(err)).Inc()
	c.pollDuration.Observe(seconds)
}

func (c *Collectors) AlertTriggered(direction string) {
	if c == nil {
		return
	}
	c.alertsTriggered.WithLabelValues(direction).Inc()
}

func (c *Collectors) WebhookAttempt(err error) {
	if c == nil {
		return
	}
	c.webhookAttempts.WithLabelValues(result(err)).Inc()
}

func (c *Collectors) WebhookDelivery(event, state string) {
	if c == nil {
		return
	}
	c.webhookDeliveries.WithLabelValues(event, state).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
