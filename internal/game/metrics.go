package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var answerOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trivia_answer_outcomes_total",
	Help: "Answer evaluations by terminal outcome.",
}, []string{"outcome"})
