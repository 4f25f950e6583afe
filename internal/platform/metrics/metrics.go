package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the proofing engine.
type Metrics struct {
	StepsVisited       *prometheus.CounterVec
	StepsSubmitted     *prometheus.CounterVec
	ThrottleTriggered  *prometheus.CounterVec
	VendorSelected     *prometheus.CounterVec
	UnknownVendorCodes prometheus.Counter
	ResolutionTimeouts prometheus.Counter
	ProfilesActivated  prometheus.Counter
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a caller-supplied registerer. Tests use a
// fresh registry per suite to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepsVisited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proofing_steps_visited_total",
			Help: "Step views, labeled by step key",
		}, []string{"step"}),
		StepsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proofing_steps_submitted_total",
			Help: "Step submissions, labeled by step key",
		}, []string{"step"}),
		ThrottleTriggered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proofing_throttle_triggered_total",
			Help: "Requests blocked by a throttle, labeled by category",
		}, []string{"category"}),
		VendorSelected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proofing_vendor_selected_total",
			Help: "Document-auth vendor picks, labeled by vendor",
		}, []string{"vendor"}),
		UnknownVendorCodes: factory.NewCounter(prometheus.CounterOpts{
			Name: "proofing_unknown_vendor_codes_total",
			Help: "Vendor error codes with no canonical mapping",
		}),
		ResolutionTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "proofing_resolution_timeouts_total",
			Help: "Resolution jobs observed expired by the poller",
		}),
		ProfilesActivated: factory.NewCounter(prometheus.CounterOpts{
			Name: "proofing_profiles_activated_total",
			Help: "Profiles activated after completed verification",
		}),
	}
}
