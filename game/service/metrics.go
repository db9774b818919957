package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsPerformed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "co2grid",
		Name:      "actions_total",
		Help:      "Transport actions performed, by action id.",
	}, []string{"action"})

	runsFinished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "co2grid",
		Name:      "runs_finished_total",
		Help:      "Runs that reached the terminal cell.",
	})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "co2grid",
		Name:      "sessions_created_total",
		Help:      "Sessions created through the service.",
	})

	devicePushes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "co2grid",
		Name:      "device_pushes_total",
		Help:      "CO2 levels handed to the display link.",
	})

	persistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "co2grid",
		Name:      "persistence_errors_total",
		Help:      "Failed writes of player progress, by record.",
	}, []string{"record"})
)
