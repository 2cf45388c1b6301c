package usage

import "time"

// UsageData represents the root structure stored in persistence.
type UsageData struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// AggregatedStats holds counters broken down by various dimensions.
type AggregatedStats struct {
	Total  RunCounts            `json:"total"`
	ByTool map[string]RunCounts `json:"by_tool"`
	ByUser map[string]RunCounts `json:"by_user"`
}

// RunCounts holds tool run sums.
type RunCounts struct {
	Runs     int64     `json:"runs"`
	Failures int64     `json:"failures"`
	LastRun  time.Time `json:"last_run,omitempty"`
}

func (rc *RunCounts) Add(ok bool, at time.Time) {
	rc.Runs++
	if !ok {
		rc.Failures++
	}
	if at.After(rc.LastRun) {
		rc.LastRun = at
	}
}
