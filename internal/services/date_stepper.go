// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurrence date stepping.
// Each frequency type (biweekly, monthly, yearly) has its own strategy
// that encapsulates how occurrence due dates advance from the anchor.

package services

import (
	"fmt"
	"time"

	"contas/internal/core"
)

// DateStepper is the strategy interface for computing occurrence due dates.
// Occurrence returns the due date of the n-th occurrence (0-based) of a
// series anchored at anchor. Computing from the anchor instead of the
// previous occurrence keeps the anchor day from drifting after a clamped
// month (Jan 31 -> Feb 28 -> Mar 31, not Mar 28).
type DateStepper interface {
	Occurrence(anchor core.Date, n int) core.Date
}

// BiweeklyStepper advances 15 days per occurrence.
type BiweeklyStepper struct{}

func (BiweeklyStepper) Occurrence(anchor core.Date, n int) core.Date {
	t := anchor.AddDate(0, 0, 15*n)
	return core.DateOf(t)
}

// MonthlyStepper advances one calendar month per occurrence, clamping the
// anchor day to the target month's last day (Jan 31 + 1 month = Feb 28/29,
// never overflowing into March).
type MonthlyStepper struct{}

func (MonthlyStepper) Occurrence(anchor core.Date, n int) core.Date {
	year, month, day := anchor.Date()
	return clampedDate(year, int(month)+n, day)
}

// YearlyStepper advances one calendar year per occurrence; Feb 29 anchors
// clamp to Feb 28 off leap years.
type YearlyStepper struct{}

func (YearlyStepper) Occurrence(anchor core.Date, n int) core.Date {
	year, month, day := anchor.Date()
	return clampedDate(year+n, int(month), day)
}

// clampedDate builds a date from a possibly out-of-range month and a day
// that may exceed the month's length. The month is normalized first, then
// the day is clamped to the month's last day.
func clampedDate(year, month, day int) core.Date {
	norm := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	lastDay := norm.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(norm.Year(), int(norm.Month()), day)
}

// stepperStrategies maps frequencies to their corresponding steppers.
var stepperStrategies = map[core.Frequency]DateStepper{
	core.Biweekly: BiweeklyStepper{},
	core.Monthly:  MonthlyStepper{},
	core.Yearly:   YearlyStepper{},
}

// GetDateStepper returns the stepper for a frequency, or an error for
// unsupported frequencies.
func GetDateStepper(frequency core.Frequency) (DateStepper, error) {
	stepper, ok := stepperStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownFrequency, string(frequency))
	}
	return stepper, nil
}

// RegisterDateStepper allows registering steppers for new frequency types.
func RegisterDateStepper(frequency core.Frequency, stepper DateStepper) {
	stepperStrategies[frequency] = stepper
}
