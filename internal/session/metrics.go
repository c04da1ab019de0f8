package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quizlive_active_sessions",
		Help: "Number of sessions currently held in the registry.",
	})
	metricSessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizlive_sessions_started_total",
		Help: "Sessions transitioned from pending to active.",
	})
	metricSessionsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizlive_sessions_ended_total",
		Help: "Sessions torn down, whether completed or ended early.",
	})
	metricParticipantsJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizlive_participants_joined_total",
		Help: "Participant joins across all sessions, rejoins included.",
	})
	metricAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizlive_answers_total",
		Help: "Answer submissions by outcome.",
	}, []string{"outcome"})
)

const (
	answerOutcomeCorrect   = "correct"
	answerOutcomeIncorrect = "incorrect"
	answerOutcomeRejected  = "rejected"
)
