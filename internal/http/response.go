package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"contas/internal/core"
	"contas/internal/services"
)

type obligationResponse struct {
	ID              int64  `json:"id"`
	Kind            string `json:"kind"`
	Amount          string `json:"amount"`
	Category        string `json:"category"`
	DueDate         string `json:"due_date"`
	Description     string `json:"description"`
	Observation     string `json:"observation,omitempty"`
	AttachmentRef   string `json:"attachment_ref,omitempty"`
	Status          string `json:"status"`
	EffectiveStatus string `json:"effective_status,omitempty"`
	SettlementDate  string `json:"settlement_date,omitempty"`
	IsRecurring     bool   `json:"is_recurring"`
	SeriesID        string `json:"series_id,omitempty"`
	Confirmed       string `json:"confirmed,omitempty"`
	Remaining       string `json:"remaining,omitempty"`
}

type confirmationResponse struct {
	ID           int64  `json:"id,omitempty"`
	ObligationID int64  `json:"obligation_id"`
	Amount       string `json:"amount"`
	ConfirmedAt  string `json:"confirmed_at"`
}

type confirmationResultResponse struct {
	Confirmation    confirmationResponse `json:"confirmation"`
	Total           string               `json:"total"`
	Remaining       string               `json:"remaining"`
	EffectiveStatus string               `json:"effective_status"`
	Settled         bool                 `json:"settled"`
}

type summaryResponse struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Reserve string `json:"reserve"`
	Net     string `json:"net"`
}

type listResponse struct {
	Obligations []obligationResponse `json:"obligations"`
	Summary     summaryResponse      `json:"summary"`
}

type errorResponse struct {
	Error    string `json:"error"`
	SeriesID string `json:"series_id,omitempty"`
	Expected int64  `json:"expected,omitempty"`
	Deleted  int64  `json:"deleted,omitempty"`
}

func toObligationResponse(o core.Obligation) obligationResponse {
	resp := obligationResponse{
		ID:            o.ID,
		Kind:          string(o.Kind),
		Amount:        o.Amount.String(),
		Category:      o.Category,
		DueDate:       o.DueDate.Format(dateLayout),
		Description:   o.Description,
		Observation:   o.Observation,
		AttachmentRef: o.AttachmentRef,
		Status:        string(o.StoredStatus),
		IsRecurring:   o.IsRecurring,
		SeriesID:      o.SeriesID,
	}
	if !o.SettlementDate.IsEmpty() {
		resp.SettlementDate = o.SettlementDate.Format(dateLayout)
	}
	return resp
}

func toResolvedResponse(rec core.ResolvedObligation) obligationResponse {
	resp := toObligationResponse(rec.Obligation)
	resp.EffectiveStatus = string(rec.EffectiveStatus)
	resp.Confirmed = rec.Confirmed.String()
	resp.Remaining = core.RemainingAmount(rec.Amount, rec.Confirmed).String()
	return resp
}

func toConfirmationResponse(c core.Confirmation) confirmationResponse {
	return confirmationResponse{
		ID:           c.ID,
		ObligationID: c.ObligationID,
		Amount:       c.Amount.String(),
		ConfirmedAt:  c.ConfirmedAt.UTC().Format(time.RFC3339),
	}
}

func toSummaryResponse(s core.PeriodSummary) summaryResponse {
	return summaryResponse{
		Income:  s.Income.String(),
		Expense: s.Expense.String(),
		Reserve: s.Reserve.String(),
		Net:     s.Net.String(),
	}
}

func toResultResponse(res services.ConfirmationResult) confirmationResultResponse {
	return confirmationResultResponse{
		Confirmation:    toConfirmationResponse(res.Confirmation),
		Total:           res.Total.String(),
		Remaining:       res.Remaining.String(),
		EffectiveStatus: string(res.EffectiveStatus),
		Settled:         res.Promoted,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses: rejected input is 422,
// a missing record 404, a partial cascade delete 409, anything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var inconsistent *core.InconsistentSeriesError
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.As(err, &inconsistent):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:    inconsistent.Error(),
			SeriesID: inconsistent.SeriesID,
			Expected: inconsistent.Expected,
			Deleted:  inconsistent.Deleted,
		})
	case errors.Is(err, errMissingID):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case core.IsValidationError(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
