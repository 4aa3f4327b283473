package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(chatJobsProcessedTotal, chatJobsFailedStepTotal, chatJobDurationSeconds, chatJobPersistFailuresTotal, chatJobsSubmittedTotal, chatJobsRequeuedTotal, chatJobsLostTotal)
}

var (
	chatJobsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_jobs_submitted_total",
			Help: "Total number of chat jobs accepted into the queue.",
		},
	)

	chatJobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_jobs_processed_total",
			Help: "Total number of chat jobs processed, labeled by terminal status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)

	chatJobsFailedStepTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_jobs_failed_step_total",
			Help: "Failed chat jobs labeled by the processing step that failed.",
		},
		[]string{"step"},
	)

	chatJobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_job_duration_seconds",
			Help:    "Time from claim to terminal state.",
			Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 120},
		},
		[]string{"status"},
	)

	chatJobPersistFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_job_persist_failures_total",
			Help: "Job store writes that failed, labeled by the status being written.",
		},
		[]string{"status"},
	)

	chatJobsRequeuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_jobs_requeued_total",
			Help: "Claimed chat jobs put back on the queue because their record could not be read.",
		},
	)

	chatJobsLostTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_jobs_lost_total",
			Help: "Claimed chat jobs that could be neither read nor requeued; they stay pending.",
		},
	)
)

func IncChatJobSubmitted() { chatJobsSubmittedTotal.Inc() }

func ObserveChatJob(status string, d time.Duration) {
	chatJobsProcessedTotal.WithLabelValues(norm(status)).Inc()
	chatJobDurationSeconds.WithLabelValues(norm(status)).Observe(d.Seconds())
}

func IncChatJobFailedStep(step string) {
	chatJobsFailedStepTotal.WithLabelValues(norm(step)).Inc()
}

func IncChatJobPersistFailure(status string) {
	chatJobPersistFailuresTotal.WithLabelValues(norm(status)).Inc()
}

func IncChatJobRequeued() { chatJobsRequeuedTotal.Inc() }

func IncChatJobLost() { chatJobsLostTotal.Inc() }
