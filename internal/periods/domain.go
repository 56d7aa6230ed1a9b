// Package periods administers accounting period locks. A closed period
// refuses every transaction mutation dated inside it; month zero closes the
// whole year.
package periods

import (
	"errors"
	"fmt"
	"time"
)

// Status enumerates period lock states.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Period is one lock row. Absent rows mean open, so listing returns only
// periods someone has touched.
type Period struct {
	Year     int
	Month    int
	Status   Status
	ClosedBy int64
	ClosedAt *time.Time
}

var (
	// ErrInvalidTransition indicates a status change not allowed by policy.
	ErrInvalidTransition = errors.New("periods: transition invalid")
	// ErrInvalidPeriod indicates a year or month out of range.
	ErrInvalidPeriod = errors.New("periods: invalid period")
)

// ValidateTransition checks a status change against policy. Closing and
// reopening are both allowed; everything else is a no-op or invalid.
func ValidateTransition(current, target Status) error {
	if current == target {
		return fmt.Errorf("%w: already %s", ErrInvalidTransition, current)
	}
	switch current {
	case StatusOpen:
		if target == StatusClosed {
			return nil
		}
	case StatusClosed:
		if target == StatusOpen {
			return nil
		}
	}
	return ErrInvalidTransition
}

// ValidatePeriod checks the year and month ranges. Month zero is the
// whole-year lock.
func ValidatePeriod(year, month int) error {
	if year < 1900 || year > 2200 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	if month < 0 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, month)
	}
	return nil
}
