package taxcal

import "time"

// PeriodStatus classifies where a submission window stands relative to a
// reference instant.
type PeriodStatus string

const (
	// PeriodPending means the submission window has not opened yet.
	PeriodPending PeriodStatus = "PENDING"
	// PeriodOpen means the reference instant falls inside the window,
	// both boundaries included.
	PeriodOpen PeriodStatus = "OPEN"
	// PeriodClosed means the submission window has passed.
	PeriodClosed PeriodStatus = "CLOSED"
)

// StatusInfo carries the derived classification of a period window.
// DaysToStart is set only while PENDING, DaysToEnd only while OPEN.
type StatusInfo struct {
	Status      PeriodStatus
	DaysToStart *int
	DaysToEnd   *int
}

const dayDuration = 24 * time.Hour

// midnight truncates t to local midnight.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween returns ceil((target - reference) / 1 day) comparing at day
// granularity.
func daysBetween(target, reference time.Time) int {
	diff := midnight(target).Sub(midnight(reference))
	days := diff / dayDuration
	if diff%dayDuration > 0 {
		days++
	}
	return int(days)
}

// Classify derives the lifecycle status of a submission window at the given
// instant. It is a pure function of its three inputs: callers inject "now" so
// results stay deterministic under test. Comparison happens at day
// granularity, and a window whose end date equals today is still OPEN.
func Classify(start, end, now time.Time) StatusInfo {
	today := midnight(now)
	startDay := midnight(start)
	endDay := midnight(end)

	switch {
	case today.Before(startDay):
		days := daysBetween(start, now)
		return StatusInfo{Status: PeriodPending, DaysToStart: &days}
	case today.After(endDay):
		return StatusInfo{Status: PeriodClosed}
	default:
		days := daysBetween(end, now)
		return StatusInfo{Status: PeriodOpen, DaysToEnd: &days}
	}
}
