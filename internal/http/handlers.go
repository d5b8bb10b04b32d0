package http

import (
	"net/http"
	"strings"
	"time"

	"contas/internal/core"
)

func today() core.Date {
	return core.DateOf(time.Now())
}

func (s *Server) handleObligations(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing X-User-ID header"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("id") != "" {
			s.handleGetObligation(w, r, owner)
			return
		}
		s.handleListObligations(w, r, owner)
	case http.MethodPost:
		s.handleCreateObligation(w, r, owner)
	case http.MethodPut:
		s.handleUpdateObligation(w, r, owner)
	case http.MethodDelete:
		s.handleDeleteObligation(w, r, owner)
	default:
		w.Header().Set("Allow", "GET, POST, PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetObligation(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseIDParam(r.URL.Query(), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.obligations.Get(r.Context(), owner, id, today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResolvedResponse(rec))
}

func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request, owner string) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	recs, summary, err := s.obligations.List(r.Context(), owner, filter, today())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := listResponse{
		Obligations: make([]obligationResponse, 0, len(recs)),
		Summary:     toSummaryResponse(summary),
	}
	for _, rec := range recs {
		resp.Obligations = append(resp.Obligations, toResolvedResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request, owner string) {
	var req obligationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	draft, err := req.toDraft()
	if err != nil {
		writeError(w, r, err)
		return
	}
	var rule *core.RecurrenceRule
	if req.Recurrence != nil {
		parsed, err := req.Recurrence.toRule()
		if err != nil {
			writeError(w, r, err)
			return
		}
		rule = &parsed
	}

	recs, err := s.obligations.Create(r.Context(), owner, draft, rule)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummaries(owner)
	if len(recs) > 0 {
		first := recs[0]
		s.logger.LogObligationCreated(r.Context(), first.ID, first.Amount.Cents, first.Category, first.SeriesID)
	}

	resp := make([]obligationResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, toObligationResponse(rec))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"obligations": resp})
}

// handleUpdateObligation replaces the user-editable fields of a record. The
// stored status is kept unless the body names a new one.
func (s *Server) handleUpdateObligation(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseIDParam(r.URL.Query(), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req obligationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	existing, err := s.obligations.Get(r.Context(), owner, id, today())
	if err != nil {
		writeError(w, r, err)
		return
	}

	draft, err := req.toDraft()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec := existing.Obligation
	rec.Kind = draft.Kind
	rec.Amount = draft.Amount
	rec.Category = draft.Category
	rec.DueDate = draft.DueDate
	rec.Description = draft.Description
	rec.Observation = draft.Observation
	rec.AttachmentRef = draft.AttachmentRef
	if draft.StoredStatus != "" {
		if draft.StoredStatus == core.StatusSettled && rec.StoredStatus != core.StatusSettled {
			rec.SettlementDate = today()
		}
		rec.StoredStatus = draft.StoredStatus
	}

	if err := s.obligations.Update(r.Context(), owner, rec); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummaries(owner)
	writeJSON(w, http.StatusOK, toObligationResponse(rec))
}

// handleDeleteObligation removes one record, or the whole series when the
// request asks for scope=series.
func (s *Server) handleDeleteObligation(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseIDParam(r.URL.Query(), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	scope := strings.TrimSpace(r.URL.Query().Get("scope"))
	switch scope {
	case "", "single":
		err = s.deleter.DeleteSingle(r.Context(), owner, id)
	case "series":
		err = s.deleter.DeleteSeries(r.Context(), owner, id)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "scope must be 'single' or 'series'"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummaries(owner)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfirmations(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing X-User-ID header"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleConfirmationHistory(w, r, owner)
	case http.MethodPost:
		s.handleRecordConfirmation(w, r, owner)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleConfirmationHistory(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseIDParam(r.URL.Query(), "obligation")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.ledger.History(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]confirmationResponse, 0, len(entries))
	for _, c := range entries {
		resp = append(resp, toConfirmationResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"confirmations": resp})
}

func (s *Server) handleRecordConfirmation(w http.ResponseWriter, r *http.Request, owner string) {
	var req confirmationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if req.ObligationID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "obligation_id is required"})
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.ledger.RecordConfirmation(r.Context(), owner, req.ObligationID, core.Money{Cents: cents}, today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummaries(owner)
	writeJSON(w, http.StatusCreated, toResultResponse(res))
}

// handleSummary returns period totals without the record list, cached per
// owner and filter.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing X-User-ID header"})
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	day := today()
	key := s.summaryCacheKey(owner, filter, day)
	if cached, found := s.summaryCache.Get(key); found {
		writeJSON(w, http.StatusOK, toSummaryResponse(cached))
		return
	}

	_, summary, err := s.obligations.List(r.Context(), owner, filter, day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}
