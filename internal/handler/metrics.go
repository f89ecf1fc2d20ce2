package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_submissions_total",
			Help: "Story submissions by outcome.",
		},
		[]string{"result"},
	)

	moderationActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_moderation_actions_total",
			Help: "Successful admin moderation actions by type.",
		},
		[]string{"action"},
	)

	adminLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_logins_total",
			Help: "Admin login attempts by status.",
		},
		[]string{"status"},
	)
)
