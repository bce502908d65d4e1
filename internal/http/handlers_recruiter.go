package httpx

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/reelapps/reelhunter/internal/domain/model"
	apperrors "github.com/reelapps/reelhunter/internal/errors"
	"github.com/reelapps/reelhunter/internal/service"
	"github.com/reelapps/reelhunter/internal/session"
)

const (
	defaultJobsLimit = 50
	maxJobsLimit     = 200
)

// RecruiterHandlers serves the recruiter API. Routes are wrapped in RequireAuth and RequireRecruiter.
type RecruiterHandlers struct {
	Svc    *service.RecruiterService
	Logger *slog.Logger
}

// caller returns the signed-in recruiter's session and id. RequireAuth guarantees both.
func caller(r *http.Request) (*session.Handle, string) {
	hd, _ := HandleFromContext(r.Context())
	st := hd.Controller.State()
	return hd, st.User.ID
}

func (h *RecruiterHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.Logger != nil && apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.Logger.ErrorContext(r.Context(), "recruiter request failed", "path", r.URL.Path, "error", err)
	}
	WriteAppError(w, err)
}

// Dashboard returns pipeline stats and the most recent postings.
func (h *RecruiterHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	_, recruiterID := caller(r)
	d, err := h.Svc.Dashboard(r.Context(), recruiterID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

// ListJobs lists the caller's postings. Query: status, q, limit, offset.
func (h *RecruiterHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	opts, err := parseJobsListOptions(r)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	_, recruiterID := caller(r)
	jobs, err := h.Svc.ListJobs(r.Context(), recruiterID, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*model.JobPosting{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "limit": opts.Limit, "offset": opts.Offset})
}

func parseJobsListOptions(r *http.Request) (model.JobPostingsListOptions, error) {
	q := r.URL.Query()
	opts := model.JobPostingsListOptions{Limit: defaultJobsLimit}

	if v := q.Get("status"); v != "" {
		st, ok := model.ParseJobStatus(v)
		if !ok {
			return opts, apperrors.ValidationField("status", "status must be active, paused or closed")
		}
		opts.Status = &st
	}
	if v := strings.TrimSpace(q.Get("q")); v != "" {
		opts.Q = &v
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, apperrors.ValidationField("limit", "limit must be a positive integer")
		}
		opts.Limit = min(n, maxJobsLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperrors.ValidationField("offset", "offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	return opts, nil
}

// CreateJob saves a new posting owned by the caller.
func (h *RecruiterHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobPostingRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteAppError(w, apperrors.Validation(err.Error()))
		return
	}
	_, recruiterID := caller(r)
	job, err := h.Svc.CreateJob(r.Context(), recruiterID, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// GetJob returns one of the caller's postings.
func (h *RecruiterHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	_, recruiterID := caller(r)
	job, err := h.Svc.GetJob(r.Context(), recruiterID, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// AnalyzeJob scores a draft job description.
func (h *RecruiterHandlers) AnalyzeJob(w http.ResponseWriter, r *http.Request) {
	var req model.AnalyzeJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	hd, _ := caller(r)
	res, err := h.Svc.AnalyzeJob(r.Context(), hd.Functions, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Matches returns the candidates matched to a posting. Query: sort, location, availability, blind.
func (h *RecruiterHandlers) Matches(w http.ResponseWriter, r *http.Request) {
	q, err := parseMatchQuery(r)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	hd, recruiterID := caller(r)
	res, err := h.Svc.MatchCandidates(r.Context(), hd.Functions, recruiterID, r.PathValue("id"), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func parseMatchQuery(r *http.Request) (model.MatchQuery, error) {
	v := r.URL.Query()
	q := model.MatchQuery{
		SortBy:       model.SortOverallScore,
		Location:     v.Get("location"),
		Availability: v.Get("availability"),
	}
	if s := v.Get("sort"); s != "" {
		q.SortBy = model.MatchSortKey(s)
		if !q.SortBy.Valid() {
			return q, apperrors.ValidationField("sort", "sort must be overall_score, skills_match or culture_match")
		}
	}
	if b := v.Get("blind"); b != "" {
		blind, err := strconv.ParseBool(b)
		if err != nil {
			return q, apperrors.ValidationField("blind", "blind must be a boolean")
		}
		q.Blind = blind
	}
	return q, nil
}
