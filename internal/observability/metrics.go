package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	sessionsStartedTotal  *prometheus.CounterVec
	submissionsTotal      *prometheus.CounterVec
	progressSaveFailures  prometheus.Counter
	recoverySweepsTotal   prometheus.Counter
	recoveredSubmissions  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the exam session
// lifecycle.
func RegisterMetrics() {
	registerOnce.Do(func() {
		sessionsStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_sessions_started_total",
			Help: "Total exam sessions started, by kind (new or resumed).",
		}, []string{"kind"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_submissions_total",
			Help: "Total submission attempts, by mode and outcome.",
		}, []string{"mode", "outcome"})

		progressSaveFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_progress_save_failures_total",
			Help: "Total failed progress snapshot writes.",
		})

		recoverySweepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_recovery_sweeps_total",
			Help: "Total stale-session recovery sweeps executed.",
		})

		recoveredSubmissions = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_recovered_submissions_total",
			Help: "Total submissions produced by the recovery sweep.",
		})

		prometheus.MustRegister(
			sessionsStartedTotal,
			submissionsTotal,
			progressSaveFailures,
			recoverySweepsTotal,
			recoveredSubmissions,
		)
	})
}

// SessionsStarted exposes the session start counter.
func SessionsStarted() *prometheus.CounterVec {
	RegisterMetrics()
	return sessionsStartedTotal
}

// Submissions exposes the submission outcome counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// ProgressSaveFailures exposes the failed snapshot write counter.
func ProgressSaveFailures() prometheus.Counter {
	RegisterMetrics()
	return progressSaveFailures
}

// RecoverySweeps exposes the recovery sweep counter.
func RecoverySweeps() prometheus.Counter {
	RegisterMetrics()
	return recoverySweepsTotal
}

// RecoveredSubmissions exposes the recovered submission counter.
func RecoveredSubmissions() prometheus.Counter {
	RegisterMetrics()
	return recoveredSubmissions
}
