package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	txResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zucast_transactions_total",
		Help: "Transactions by type and append result.",
	}, []string{"type", "result"})

	usersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zucast_users_total",
		Help: "Number of materialized identities.",
	})

	postsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zucast_posts_total",
		Help: "Total posts created.",
	})

	likesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zucast_likes_total",
		Help: "Total likes recorded (unlikes not subtracted).",
	})

	actionsIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zucast_actions_ignored_total",
		Help: "Actions with an unknown type, skipped for forward compatibility.",
	})
)
