package observability

import "github.com/prometheus/client_golang/prometheus"

// JourneyMetrics counts journey state machine activity.
type JourneyMetrics struct {
	checkIns        prometheus.Counter
	stepCompletions *prometheus.CounterVec
	rejections      *prometheus.CounterVec
}

// NewJourneyMetrics registers journey counters on the given registerer.
func NewJourneyMetrics(reg prometheus.Registerer) *JourneyMetrics {
	checkIns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicflow_journey_check_ins_total",
		Help: "Journeys opened by patient check-in.",
	})
	completions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicflow_journey_step_completions_total",
		Help: "Station completions by station.",
	}, []string{"station"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicflow_journey_rejections_total",
		Help: "Rejected transitions by reason.",
	}, []string{"reason"})
	reg.MustRegister(checkIns, completions, rejections)
	return &JourneyMetrics{
		checkIns:        checkIns,
		stepCompletions: completions,
		rejections:      rejections,
	}
}

// CheckIn counts a successful check-in.
func (m *JourneyMetrics) CheckIn() {
	if m == nil {
		return
	}
	m.checkIns.Inc()
}

// StepCompleted counts a successful station completion.
func (m *JourneyMetrics) StepCompleted(station string) {
	if m == nil {
		return
	}
	m.stepCompletions.WithLabelValues(station).Inc()
}

// Rejection counts a rejected transition.
func (m *JourneyMetrics) Rejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}
