package billing

import (
	"errors"
	"time"
)

var (
	ErrRunInProgress         = errors.New("billing run already in progress")
	ErrCycleInProgress       = errors.New("subscription cycle already in progress")
	ErrSubscriptionCancelled = errors.New("subscription is cancelled")
	ErrSubscriptionMissing   = errors.New("subscription not found")
	ErrServiceMissing        = errors.New("subscription service not found")
	ErrUserMissing           = errors.New("subscription user not found")
	ErrUnsupportedInterval   = errors.New("unsupported billing interval")
	ErrAttemptFinished       = errors.New("payment attempt already finished")
)

// CycleResult summarizes one processSubscriptionCycle call. Error carries a
// provider failure message; data errors are returned separately.
type CycleResult struct {
	SubscriptionID uint   `json:"subscription_id"`
	Skipped        bool   `json:"skipped"`
	InvoiceID      uint   `json:"invoice_id,omitempty"`
	Charged        bool   `json:"charged"`
	Settled        bool   `json:"settled,omitempty"`
	Manual         bool   `json:"manual,omitempty"`
	Paused         bool   `json:"paused,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Failed reports whether a charge was attempted and did not go through.
func (r CycleResult) Failed() bool {
	return !r.Skipped && !r.Charged && !r.Settled && !r.Manual && r.Error != ""
}

// RunSummary is returned by RunBillingCycle.
type RunSummary struct {
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Due         int           `json:"due"`
	Processed   int           `json:"processed"`
	Charged     int           `json:"charged"`
	Settled     int           `json:"settled"`
	Failed      int           `json:"failed"`
	Manual      int           `json:"manual"`
	Skipped     int           `json:"skipped"`
	Paused      int           `json:"paused"`
	Errors      int           `json:"errors"`
	Overdue     int           `json:"overdue"`
	Interrupted bool          `json:"interrupted,omitempty"`
	Results     []CycleResult `json:"results"`
}

func (s *RunSummary) add(res CycleResult, err error) {
	s.Processed++
	s.Results = append(s.Results, res)
	switch {
	case err != nil:
		s.Errors++
	case res.Skipped:
		s.Skipped++
	case res.Charged:
		s.Charged++
	case res.Settled:
		s.Settled++
	case res.Manual:
		s.Manual++
	default:
		s.Failed++
	}
	if res.Paused {
		s.Paused++
	}
}
