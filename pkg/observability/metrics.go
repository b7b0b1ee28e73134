package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/carepath/internal/logging"
	"github.com/aretw0/carepath/pkg/crm"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carepath"

// Metrics holds the collectors of the service.
type Metrics struct {
	StepVisits      *prometheus.CounterVec
	Submissions     *prometheus.CounterVec
	FlowCompletions prometheus.Counter
	CRMAttempts     *prometheus.CounterVec
	CRMDuration     *prometheus.HistogramVec

	logger *slog.Logger
}

// NewMetrics creates and registers the collectors.
func NewMetrics(reg prometheus.Registerer, logger *slog.Logger) *Metrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Metrics{
		StepVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_visits_total",
			Help:      "Total number of wizard step visits",
		}, []string{"step_id"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Form submissions by completion state and result",
		}, []string{"completion_state", "result"}),
		FlowCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_completions_total",
			Help:      "Total number of completed wizards",
		}),
		CRMAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crm_login_attempts_total",
			Help:      "CRM login attempts by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		CRMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crm_login_duration_seconds",
			Help:      "Duration of CRM login attempts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		logger: logger,
	}
	reg.MustRegister(m.StepVisits, m.Submissions, m.FlowCompletions, m.CRMAttempts, m.CRMDuration)
	return m
}

// Hooks returns lifecycle hooks that log events and record metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			m.logger.DebugContext(ctx, "step_enter",
				"subscription_id", e.SubscriptionID,
				"step_id", e.StepID,
				"transition", e.Transition)
			m.StepVisits.WithLabelValues(e.StepID).Inc()
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			m.logger.DebugContext(ctx, "step_leave", "subscription_id", e.SubscriptionID, "step_id", e.StepID)
		},
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.Submissions.WithLabelValues(string(e.State), result).Inc()
		},
		OnFlowComplete: func(ctx context.Context, e *domain.StepEvent) {
			m.logger.InfoContext(ctx, "flow_complete", "subscription_id", e.SubscriptionID)
			m.FlowCompletions.Inc()
		},
	}
}

// CRMAttempt records one probed login endpoint. Pass it to crm.WithAttemptHook.
func (m *Metrics) CRMAttempt(_ context.Context, a crm.Attempt) {
	m.CRMAttempts.WithLabelValues(a.Endpoint, string(a.Outcome)).Inc()
	m.CRMDuration.WithLabelValues(a.Endpoint).Observe(a.Duration.Seconds())
}
