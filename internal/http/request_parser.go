// This file implements utilities for parsing and validating HTTP request
// data: JSON bodies, query parameters, date values and input sanitization.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"contas/internal/core"
)

const dateLayout = "2006-01-02"

var errMissingID = errors.New("missing or invalid id parameter")

// ownerID extracts the authenticated user id the gateway forwards on each
// request. Empty means the request skipped the gateway.
func ownerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1 // remove character
		}
		return r
	}, s)
	return result
}

// parseDateValue parses a YYYY-MM-DD value. Empty input yields a zero date.
func parseDateValue(v string) (core.Date, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD)", core.ErrInvalidDueDate, v)
	}
	return core.DateOf(t), nil
}

// parseIDParam extracts the ?id= query parameter.
func parseIDParam(query url.Values, key string) (int64, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, errMissingID
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, errMissingID
	}
	return id, nil
}

// parseFilter builds a record filter from list/summary query parameters.
func parseFilter(query url.Values) (core.Filter, error) {
	var f core.Filter
	var err error

	if f.From, err = parseDateValue(query.Get("from")); err != nil {
		return core.Filter{}, err
	}
	if f.To, err = parseDateValue(query.Get("to")); err != nil {
		return core.Filter{}, err
	}
	f.Category = sanitizeInput(query.Get("category"))

	if v := strings.TrimSpace(query.Get("kind")); v != "" {
		f.Kind = core.Kind(v)
		if err := f.Kind.Validate(); err != nil {
			return core.Filter{}, err
		}
	}
	if v := strings.TrimSpace(query.Get("status")); v != "" {
		f.Status = core.Status(v)
		if err := f.Status.Validate(); err != nil {
			return core.Filter{}, err
		}
	}
	return f, nil
}

// recurrenceRequest is the optional recurrence block on obligation creation.
type recurrenceRequest struct {
	Frequency   string `json:"frequency"`
	Termination string `json:"termination"`
	Count       int    `json:"count,omitempty"`
	Until       string `json:"until,omitempty"`
	Lookahead   int    `json:"lookahead,omitempty"`
}

// obligationRequest carries the user-entered fields of an obligation.
// Amounts travel as decimal strings ("120.50") and dates as YYYY-MM-DD.
type obligationRequest struct {
	Kind          string             `json:"kind"`
	Amount        string             `json:"amount"`
	Category      string             `json:"category"`
	DueDate       string             `json:"due_date"`
	Description   string             `json:"description"`
	Observation   string             `json:"observation,omitempty"`
	AttachmentRef string             `json:"attachment_ref,omitempty"`
	Status        string             `json:"status,omitempty"`
	Recurrence    *recurrenceRequest `json:"recurrence,omitempty"`
}

type confirmationRequest struct {
	ObligationID int64  `json:"obligation_id"`
	Amount       string `json:"amount"`
}

// decodeJSON decodes the request body into dst, limiting its size.
func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// toDraft converts the request into a validated-shape domain draft.
func (req obligationRequest) toDraft() (core.ObligationDraft, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.ObligationDraft{}, err
	}
	due, err := parseDateValue(req.DueDate)
	if err != nil {
		return core.ObligationDraft{}, err
	}
	return core.ObligationDraft{
		Kind:          core.Kind(strings.TrimSpace(req.Kind)),
		Amount:        core.Money{Cents: cents},
		Category:      sanitizeInput(req.Category),
		DueDate:       due,
		Description:   sanitizeInput(req.Description),
		Observation:   sanitizeInput(req.Observation),
		AttachmentRef: sanitizeInput(req.AttachmentRef),
		StoredStatus:  core.Status(strings.TrimSpace(req.Status)),
	}, nil
}

// toRule converts the recurrence block into a domain rule.
func (req recurrenceRequest) toRule() (core.RecurrenceRule, error) {
	until, err := parseDateValue(req.Until)
	if err != nil {
		return core.RecurrenceRule{}, err
	}
	return core.RecurrenceRule{
		Frequency:   core.Frequency(strings.TrimSpace(req.Frequency)),
		Termination: core.TerminationMode(strings.TrimSpace(req.Termination)),
		Count:       req.Count,
		Until:       until,
		Lookahead:   req.Lookahead,
	}, nil
}
