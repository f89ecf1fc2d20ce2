package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storiesDisplayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_stories_displayed_total",
		Help: "Stories shown on the overlay, by strategy actually used.",
	}, []string{"strategy"})

	strategyFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_strategy_fallbacks_total",
		Help: "Displays that fell back to the ticker, by requested strategy.",
	}, []string{"requested"})

	refreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overlay_refresh_failures_total",
		Help: "Refreshes that kept the previous rotation because the store failed.",
	})

	eligibleStories = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "overlay_eligible_stories",
		Help: "Stories in the current rotation.",
	})
)
