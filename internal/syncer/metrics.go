package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_sync_runs_total",
		Help: "Sync runs by target kind, execution type and terminal status",
	}, []string{"target", "execution", "status"})

	syncRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_sync_records_total",
		Help: "Reconciled records by target kind and operation",
	}, []string{"target", "op"})
)

func observeRun(target, execution, status string, c Counters) {
	syncRunsTotal.WithLabelValues(target, execution, status).Inc()
	syncRecordsTotal.WithLabelValues(target, "processed").Add(float64(c.Processed))
	syncRecordsTotal.WithLabelValues(target, "added").Add(float64(c.Added))
	syncRecordsTotal.WithLabelValues(target, "updated").Add(float64(c.Updated))
	syncRecordsTotal.WithLabelValues(target, "deactivated").Add(float64(c.Deactivated))
	syncRecordsTotal.WithLabelValues(target, "skipped").Add(float64(c.Skipped))
}
