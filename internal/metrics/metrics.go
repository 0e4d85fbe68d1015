package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_records_stored_total",
		Help: "Total number of records written to the data directory, labelled by kind.",
	}, []string{"kind"})

	PlansCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_plans_created_total",
		Help: "Total number of action plans created.",
	})

	PlansClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_plans_closed_total",
		Help: "Total number of action plans closed.",
	})

	EmailOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_plan_emails_total",
		Help: "Total number of plan notification attempts, labelled by outcome.",
	}, []string{"outcome"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds, labelled by route.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"route"})
)
