package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/espalierhq/espalier/pkg/domain"
)

// Metrics exposes engine activity as prometheus collectors. Obtain the
// hook set via Hooks and pass it to the engine.
type Metrics struct {
	RunsStarted  prometheus.Counter
	RunsFinished *prometheus.CounterVec
	TasksTotal   *prometheus.CounterVec
	RetriesTotal *prometheus.CounterVec
	Recovered    *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
}

// NewMetrics builds and registers the collectors on reg
// (prometheus.DefaultRegisterer is the usual choice).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "espalier_runs_started_total",
			Help: "Total number of runs started",
		}),
		RunsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "espalier_runs_finished_total",
			Help: "Total number of runs reaching a terminal status",
		}, []string{"flow", "status"}),
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "espalier_tasks_total",
			Help: "Total number of task attempts",
		}, []string{"flow", "outcome"}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "espalier_task_retries_total",
			Help: "Total number of task retries",
		}, []string{"flow"}),
		Recovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "espalier_tasks_recovered_total",
			Help: "Total number of task failures handled by skip or substitution",
		}, []string{"flow"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "espalier_task_duration_seconds",
			Help: "Duration of task attempts",
		}, []string{"flow", "task"}),
	}
	reg.MustRegister(m.RunsStarted, m.RunsFinished, m.TasksTotal, m.RetriesTotal, m.Recovered, m.TaskDuration)
	return m
}

// Hooks returns the lifecycle hook set feeding these collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			m.RunsStarted.Inc()
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			m.RunsFinished.WithLabelValues(e.FlowName, string(e.Status)).Inc()
		},
		OnTaskFinish: func(ctx context.Context, e *domain.TaskEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			m.TasksTotal.WithLabelValues(e.FlowName, outcome).Inc()
			m.TaskDuration.WithLabelValues(e.FlowName, e.Task.ID).Observe(e.Duration.Seconds())
		},
		OnTaskRetry: func(ctx context.Context, e *domain.TaskEvent) {
			m.RetriesTotal.WithLabelValues(e.FlowName).Inc()
		},
		OnTaskRecovered: func(ctx context.Context, e *domain.TaskEvent) {
			m.Recovered.WithLabelValues(e.FlowName).Inc()
		},
	}
}
