package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CanonmapValidationRuns tracks how often the rule set runs
	CanonmapValidationRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "canonmap_validation_runs_total",
			Help: "Total number of validation runs",
		},
	)

	// CanonmapValidationFindings tracks the findings of the last run
	CanonmapValidationFindings = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "canonmap_validation_findings",
			Help: "Findings reported by the most recent validation run",
		},
		[]string{"severity"},
	)

	// CanonmapRemoteCommits tracks sync attempts against GitHub
	CanonmapRemoteCommits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canonmap_remote_commits_total",
			Help: "Total remote commit attempts by outcome",
		},
		[]string{"outcome"},
	)

	// CanonmapTaskCompletions tracks checked-off review tasks
	CanonmapTaskCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canonmap_task_completions_total",
			Help: "Total review task completions by cadence",
		},
		[]string{"cadence"},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(CanonmapValidationRuns)
	prometheus.MustRegister(CanonmapValidationFindings)
	prometheus.MustRegister(CanonmapRemoteCommits)
	prometheus.MustRegister(CanonmapTaskCompletions)
}
