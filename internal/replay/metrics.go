package replay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	addedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamestate_replay_added_total",
		Help: "Experiences added, by store",
	}, []string{"store"})

	sampledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamestate_replay_sampled_total",
		Help: "Experiences sampled, by store",
	}, []string{"store"})

	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamestate_replay_rejected_total",
		Help: "Rejected store operations, by store, operation and reason",
	}, []string{"store", "op", "reason"})

	sizeGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gamestate_replay_size",
		Help: "Occupied slots, by store",
	}, []string{"store"})

	persistSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gamestate_replay_persist_seconds",
		Help:    "Snapshot save and load latency, by store and operation",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"store", "op"})
)
