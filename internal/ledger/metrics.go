package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var creditedWordsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ledger_credited_words_total",
	Help: "Words added to the leaderboard by this instance.",
})
