package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	encodesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamestate_codec_encodes_total",
		Help: "Total scene encodes",
	})

	sectionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamestate_codec_section_failures_total",
		Help: "Encode sections zero-filled after a failure, by section",
	}, []string{"section"})

	rangeWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamestate_codec_range_warnings_total",
		Help: "Vector values found outside the tolerated [0,1] band",
	})

	validationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamestate_codec_validation_failures_total",
		Help: "Vectors rejected for length or non-finite values",
	})
)
