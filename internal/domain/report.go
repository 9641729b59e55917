package domain

import "time"

type Report struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Outcomes   []Outcome `json:"outcomes" yaml:"outcomes"`
}

// AllSucceeded is false for an empty report.
func (r Report) AllSucceeded() bool {
	if len(r.Outcomes) == 0 {
		return false
	}

	for _, outcome := range r.Outcomes {
		if !outcome.Success {
			return false
		}
	}

	return true
}

func (r Report) SuccessCount() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Success {
			count++
		}
	}

	return count
}
