package models

import (
	"time"
)

// Outcome is the result of evaluating a single policy
type Outcome string

const (
	// OutcomeConfirmed means the policy confirmed equality
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeInconclusive means the policy could neither confirm nor refute
	OutcomeInconclusive Outcome = "inconclusive"
	// OutcomeFailed means the policy found a difference or errored
	OutcomeFailed Outcome = "failed"
)

// PolicyResult records one policy evaluation
type PolicyResult struct {
	Policy   Policy
	Outcome  Outcome
	Detail   string
	Error    string
	Duration time.Duration
}

// RemoteInfo is the metadata learned about the remote resource
type RemoteInfo struct {
	Length      int64
	ETag        string
	ContentType string
}

// Report represents the results of one comparison
type Report struct {
	ID     string
	Local  string
	Other  string
	Remote bool

	// Method is the local comparison method, or "policies" for remote pairs
	Method string

	RemoteInfo *RemoteInfo
	Policies   []PolicyResult

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Status Status
	// Kind is the failure kind name, empty on success
	Kind  string
	Error string
}

// Status represents the overall result
type Status string

const (
	// StatusMatch indicates the resources are identical
	StatusMatch Status = "match"
	// StatusMismatch indicates the resources differ
	StatusMismatch Status = "mismatch"
	// StatusError indicates the comparison could not complete
	StatusError Status = "error"
)

// ExitCode returns the appropriate exit code for the status
func (s Status) ExitCode() int {
	switch s {
	case StatusMatch:
		return 0
	case StatusMismatch:
		return 1
	default:
		return 2
	}
}

// Confirmed counts the policies that confirmed equality
func (r *Report) Confirmed() int {
	n := 0
	for _, p := range r.Policies {
		if p.Outcome == OutcomeConfirmed {
			n++
		}
	}
	return n
}
