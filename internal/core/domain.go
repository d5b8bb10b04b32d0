package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
	Reserve Kind = "reserve"
)

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
	StatusOverdue Status = "overdue"
)

const (
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
)

const (
	ByCount   TerminationMode = "count"
	UntilDate TerminationMode = "until"
	Forever   TerminationMode = "forever"
)

// DefaultForeverLookahead bounds open-ended series generation. A worker
// extends the series later; the expander never produces an unbounded batch.
const DefaultForeverLookahead = 12

type (
	Kind            string
	Status          string
	Frequency       string
	TerminationMode string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Obligation is a single financial transaction instance, standalone or
	// one member of a recurrence series. SeriesID is empty for standalone
	// records and shared by every sibling produced by one expansion call.
	Obligation struct {
		ID             int64
		Kind           Kind
		Amount         Money
		Category       string
		DueDate        Date
		Description    string
		Observation    string
		AttachmentRef  string
		StoredStatus   Status
		SettlementDate Date // zero until fully settled
		IsRecurring    bool
		SeriesID       string
	}

	// ObligationDraft carries every user-entered Obligation field; id and
	// series id are assigned by persistence and expansion respectively.
	ObligationDraft struct {
		Kind          Kind
		Amount        Money
		Category      string
		DueDate       Date
		Description   string
		Observation   string
		AttachmentRef string
		StoredStatus  Status
	}

	// RecurrenceRule describes how a draft expands into a series.
	// Lookahead applies only to Forever and falls back to
	// DefaultForeverLookahead when zero.
	RecurrenceRule struct {
		Frequency   Frequency
		Termination TerminationMode
		Count       int
		Until       Date
		Lookahead   int
	}

	// Confirmation is one append-only partial-settlement record. Entries are
	// never updated or individually deleted; they go away only when their
	// obligation does.
	Confirmation struct {
		ID           int64
		ObligationID int64
		Amount       Money
		ConfirmedAt  time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidKind        = errors.New("invalid kind")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidDueDate     = errors.New("invalid due date")
	ErrUnknownFrequency   = errors.New("unknown recurrence frequency")
	ErrInvalidCount       = errors.New("recurrence count must be at least 1")
	ErrInvalidUntil       = errors.New("recurrence end date required")
	ErrNotFound           = errors.New("not found")
)

// InconsistentSeriesError reports a cascade delete that removed fewer rows
// than the series was known to contain.
type InconsistentSeriesError struct {
	SeriesID string
	Expected int64
	Deleted  int64
}

func (e *InconsistentSeriesError) Error() string {
	return fmt.Sprintf("series %s: deleted %d of %d records", e.SeriesID, e.Deleted, e.Expected)
}

// IsValidationError reports whether err belongs to the validation taxonomy,
// i.e. the input was rejected before any write was attempted.
func IsValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidAmount, ErrEmptyDescription, ErrDescriptionTooLong,
		ErrEmptyCategory, ErrInvalidKind, ErrInvalidStatus, ErrInvalidDueDate,
		ErrUnknownFrequency, ErrInvalidCount, ErrInvalidUntil,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// NewDate creates a Date normalized to midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDueDate
	}
	return nil
}

// BeforeDay reports whether d falls on an earlier calendar day than other.
func (d Date) BeforeDay(other Date) bool {
	dy, dm, dd := d.Date()
	oy, om, od := other.Date()
	if dy != oy {
		return dy < oy
	}
	if dm != om {
		return dm < om
	}
	return dd < od
}

// AfterDay reports whether d falls on a later calendar day than other.
func (d Date) AfterDay(other Date) bool {
	return other.BeforeDay(d)
}

// IsEmpty returns true if the date is zero (optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense, Reserve:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
}

func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusSettled, StatusOverdue:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
}

func (d ObligationDraft) Validate() error {
	if err := d.Kind.Validate(); err != nil {
		return err
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(d.Category) == "" {
		return ErrEmptyCategory
	}
	if err := d.DueDate.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(d.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(d.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if d.StoredStatus != "" {
		if err := d.StoredStatus.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Record materializes the draft as an unsaved Obligation. An empty stored
// status defaults to pending.
func (d ObligationDraft) Record() Obligation {
	status := d.StoredStatus
	if status == "" {
		status = StatusPending
	}
	return Obligation{
		Kind:          d.Kind,
		Amount:        d.Amount,
		Category:      d.Category,
		DueDate:       d.DueDate,
		Description:   d.Description,
		Observation:   d.Observation,
		AttachmentRef: d.AttachmentRef,
		StoredStatus:  status,
	}
}

func (r RecurrenceRule) Validate() error {
	switch r.Frequency {
	case Biweekly, Monthly, Yearly:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrequency, string(r.Frequency))
	}
	switch r.Termination {
	case ByCount:
		if r.Count < 1 {
			return ErrInvalidCount
		}
	case UntilDate:
		// An end date before the anchor is not an error: the expansion
		// degrades to the anchor occurrence alone.
		if r.Until.IsZero() {
			return ErrInvalidUntil
		}
	case Forever:
	default:
		return fmt.Errorf("invalid termination policy: %q", string(r.Termination))
	}
	return nil
}

// EffectiveLookahead returns the bounded window used for Forever expansion.
func (r RecurrenceRule) EffectiveLookahead() int {
	if r.Lookahead > 0 {
		return r.Lookahead
	}
	return DefaultForeverLookahead
}

func (o Obligation) Validate() error {
	draft := ObligationDraft{
		Kind:         o.Kind,
		Amount:       o.Amount,
		Category:     o.Category,
		DueDate:      o.DueDate,
		Description:  o.Description,
		StoredStatus: o.StoredStatus,
	}
	return draft.Validate()
}

func (c Confirmation) Validate() error {
	if c.ObligationID <= 0 {
		return errors.New("confirmation requires an obligation id")
	}
	return c.Amount.Validate()
}
