package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Advertisement outcomes
const (
	ResultAdvertised = "advertised"
	ResultEmpty      = "empty"
	ResultSkipped    = "skipped"
	ResultError      = "error"
)

// Collector holds all Prometheus metrics for mechanism advertisement
type Collector struct {
	// Request metrics
	AdvertiseRequests    *prometheus.CounterVec
	MechanismsAdvertised *prometheus.CounterVec

	// Lookup metrics
	UserLookupDuration    prometheus.Histogram
	UserLeasesOutstanding prometheus.Gauge
}

// NewCollector creates a collector registered on reg. A nil reg uses the default registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if namespace == "" {
		namespace = "saslmechs"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		AdvertiseRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advertise_requests_total",
			Help:      "Mechanism advertisement requests by result",
		}, []string{"result"}),
		MechanismsAdvertised: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mechanisms_advertised_total",
			Help:      "Number of times each mechanism was advertised",
		}, []string{"mechanism"}),
		UserLookupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "user_lookup_duration_seconds",
			Help:      "Time spent acquiring users from the directory",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		UserLeasesOutstanding: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "user_leases_outstanding",
			Help:      "User handles acquired and not yet released",
		}),
	}
}

// RecordAdvertisement records a request outcome and the mechanisms offered
func (c *Collector) RecordAdvertisement(result string, mechanisms []string) {
	if c == nil {
		return
	}
	c.AdvertiseRequests.WithLabelValues(result).Inc()
	for _, mechanism := range mechanisms {
		c.MechanismsAdvertised.WithLabelValues(mechanism).Inc()
	}
}

// ObserveLookup records the duration of a directory lookup
func (c *Collector) ObserveLookup(d time.Duration) {
	if c == nil {
		return
	}
	c.UserLookupDuration.Observe(d.Seconds())
}

// LeaseAcquired records a new outstanding user handle
func (c *Collector) LeaseAcquired() {
	if c == nil {
		return
	}
	c.UserLeasesOutstanding.Inc()
}

// LeaseReleased records a released user handle
func (c *Collector) LeaseReleased() {
	if c == nil {
		return
	}
	c.UserLeasesOutstanding.Dec()
}
