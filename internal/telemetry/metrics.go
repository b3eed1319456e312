package telemetry

import (
	"chat-trivia-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements app.Metrics with Prometheus counters.
type Metrics struct {
	started          *prometheus.CounterVec
	generationFailed prometheus.Counter
	closed           *prometheus.CounterVec
	stale            prometheus.Counter
	finished         *prometheus.CounterVec
}

// NewMetrics registers the trivia counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "quizzes_started_total",
			Help:      "Quizzes started, by scoring policy.",
		}, []string{"policy"}),
		generationFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "generation_failures_total",
			Help:      "Start requests that failed because question generation failed.",
		}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "questions_closed_total",
			Help:      "Questions closed, by trigger (answer or timeout).",
		}, []string{"trigger"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "stale_transitions_total",
			Help:      "Answers or deadlines dropped because the question was already consumed.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "quizzes_finished_total",
			Help:      "Quizzes that ran to the last question, by scoring policy.",
		}, []string{"policy"}),
	}
	reg.MustRegister(m.started, m.generationFailed, m.closed, m.stale, m.finished)
	return m
}

func (m *Metrics) QuizStarted(policy domain.Policy) {
	m.started.WithLabelValues(string(policy)).Inc()
}

func (m *Metrics) GenerationFailed() {
	m.generationFailed.Inc()
}

func (m *Metrics) QuestionClosed(trigger string) {
	m.closed.WithLabelValues(trigger).Inc()
}

func (m *Metrics) StaleTransition() {
	m.stale.Inc()
}

func (m *Metrics) QuizFinished(policy domain.Policy) {
	m.finished.WithLabelValues(string(policy)).Inc()
}
