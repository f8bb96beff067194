package model

import "fmt"

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusConverted = "converted"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

var allowedTransitions = map[string]map[string]bool{
	"": {
		StatusPending: true,
	},
	StatusPending: {
		StatusRunning: true,
		StatusSkipped: true, // output would clobber the source, or the batch was interrupted
	},
	StatusRunning: {
		StatusConverted: true,
		StatusFailed:    true,
	},
	StatusConverted: {},
	StatusFailed:    {},
	StatusSkipped:   {},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func IsTerminal(status string) bool {
	switch status {
	case StatusConverted, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionJob(job *ConversionJob, toStatus string) error {
	from := job.Status
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("invalid job status transition: %q -> %q (job=%d source=%s)", from, toStatus, job.ID, job.SourcePath)
	}
	job.Status = toStatus
	return nil
}
