// Package metrics exposes the Prometheus collectors of the task service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll outcomes.
const (
	PollOK          = "ok"
	PollTransport   = "transport"
	PollApplication = "application"
)

// Submission and download outcomes.
const (
	OutcomeOK                = "ok"
	OutcomeRejected          = "rejected"
	OutcomeTranslationFailed = "translation_failed"
	OutcomeError             = "error"
)

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gras_submissions_total",
			Help: "Generation job submissions by task type and outcome",
		},
		[]string{"task_type", "outcome"},
	)

	pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gras_polls_total",
			Help: "Status polls by outcome",
		},
		[]string{"outcome"},
	)

	jobTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gras_job_transitions_total",
			Help: "Task status changes applied from polls",
		},
		[]string{"status"},
	)

	downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gras_downloads_total",
			Help: "Media downloads by outcome",
		},
		[]string{"outcome"},
	)

	tasksByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gras_tasks_by_status",
			Help: "Stored tasks by status",
		},
		[]string{"status"},
	)
)

var once sync.Once

func init() {
	prometheus.MustRegister(submissionsTotal)
	prometheus.MustRegister(pollsTotal)
	prometheus.MustRegister(jobTransitionsTotal)
	prometheus.MustRegister(downloadsTotal)
	prometheus.MustRegister(tasksByStatus)

	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordSubmission(taskType, outcome string) {
	submissionsTotal.WithLabelValues(taskType, outcome).Inc()
}

func RecordPoll(outcome string) {
	pollsTotal.WithLabelValues(outcome).Inc()
}

func RecordTransition(status string) {
	jobTransitionsTotal.WithLabelValues(status).Inc()
}

func RecordDownload(outcome string) {
	downloadsTotal.WithLabelValues(outcome).Inc()
}

// SetTasksByStatus replaces the gauge values. Statuses missing from counts
// are reset to zero.
func SetTasksByStatus(statuses []string, counts map[string]int) {
	for _, s := range statuses {
		tasksByStatus.WithLabelValues(s).Set(float64(counts[s]))
	}
}
