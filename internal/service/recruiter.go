package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/sync/errgroup"

	"github.com/reelapps/reelhunter/config"
	"github.com/reelapps/reelhunter/internal/core"
	"github.com/reelapps/reelhunter/internal/domain/model"
	apperrors "github.com/reelapps/reelhunter/internal/errors"
	"github.com/reelapps/reelhunter/internal/observability/metrics"
	"github.com/reelapps/reelhunter/internal/observability/statsd"
	"github.com/reelapps/reelhunter/internal/ports"
)

const (
	dashboardRecentJobs = 5
	matchCacheKeyPrefix = "matches:"

	// DefaultMatchPath takes the "matches" field of an object reply, or a bare list.
	// An empty "matches" list is a real answer.
	DefaultMatchPath = "not_null(matches, @)"
)

var (
	// ErrInvalidMatchPayload is logged when the match function's reply does not hold a usable match list.
	ErrInvalidMatchPayload = errors.New("invalid match response")
	// ErrInvalidAnalysisPayload is logged when the analysis function's reply cannot be used.
	ErrInvalidAnalysisPayload = errors.New("invalid analysis response")
)

// RecruiterServiceOptions groups dependencies for RecruiterService.
type RecruiterServiceOptions struct {
	Jobs    core.JobPostingRepository // Required: job posting repository
	Cache   core.CacheRepository      // Optional: match result cache
	Config  config.FunctionsConfig    // Function names, match path, breaker tuning, cache TTL
	Logger  *slog.Logger              // Optional: structured logger
	Metrics statsd.Sink               // Optional: metrics sink (StatsD-compatible)
}

// RecruiterService runs the recruiter workflows: job postings, job-description analysis,
// candidate matching and the dashboard.
type RecruiterService struct {
	jobs   core.JobPostingRepository
	cache  core.CacheRepository
	cfg    config.FunctionsConfig
	logger *slog.Logger
	funcs  *functionCaller
}

// AnalysisResult is a job-description analysis. Fallback marks the demo analysis.
type AnalysisResult struct {
	Analysis *model.JobAnalysis `json:"analysis"`
	Fallback bool               `json:"fallback"`
}

// MatchResult is a shaped candidate list for one posting.
type MatchResult struct {
	JobID    string                 `json:"job_id"`
	Matches  []model.CandidateMatch `json:"matches"`
	Total    int                    `json:"total"`
	Fallback bool                   `json:"fallback"`
	Cached   bool                   `json:"cached"`
}

// Dashboard is the recruiter landing view.
type Dashboard struct {
	Stats      model.RecruitmentStats `json:"stats"`
	RecentJobs []*model.JobPosting    `json:"recent_jobs"`
}

// NewRecruiterService constructs a new RecruiterService.
func NewRecruiterService(opts RecruiterServiceOptions) (*RecruiterService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobPostingRepository is required")
	}
	cfg := opts.Config
	if cfg.MatchName == "" {
		cfg.MatchName = "match-candidates"
	}
	if cfg.AnalyzeName == "" {
		cfg.AnalyzeName = "analyze-job"
	}
	if strings.TrimSpace(cfg.MatchPath) == "" {
		cfg.MatchPath = DefaultMatchPath
	}
	if _, err := jmespath.Compile(cfg.MatchPath); err != nil {
		return nil, fmt.Errorf("invalid match path %q: %w", cfg.MatchPath, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "recruiter_service")

	return &RecruiterService{
		jobs:   opts.Jobs,
		cache:  opts.Cache,
		cfg:    cfg,
		logger: logger,
		funcs:  newFunctionCaller(cfg.Breaker, logger, opts.Metrics),
	}, nil
}

// CreateJob saves a posting owned by recruiterID.
func (s *RecruiterService) CreateJob(
	ctx context.Context,
	recruiterID string,
	req *model.CreateJobPostingRequest,
) (*model.JobPosting, error) {
	job, err := s.jobs.Create(ctx, recruiterID, req)
	if err != nil {
		return nil, fmt.Errorf("create job posting: %w", err)
	}
	s.logger.InfoContext(ctx, "job posting created", "job_id", job.ID, "recruiter_id", recruiterID)
	return job, nil
}

// ListJobs lists the recruiter's own postings.
func (s *RecruiterService) ListJobs(
	ctx context.Context,
	recruiterID string,
	opts model.JobPostingsListOptions,
) ([]*model.JobPosting, error) {
	opts.RecruiterID = recruiterID
	jobs, err := s.jobs.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list job postings: %w", err)
	}
	return jobs, nil
}

// GetJob returns a posting if recruiterID owns it. Other recruiters' postings read as not found.
func (s *RecruiterService) GetJob(ctx context.Context, recruiterID, id string) (*model.JobPosting, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.RecruiterID != recruiterID {
		return nil, apperrors.NotFound("job posting not found")
	}
	return job, nil
}

// Dashboard loads stats and the most recent postings in parallel.
func (s *RecruiterService) Dashboard(ctx context.Context, recruiterID string) (*Dashboard, error) {
	var out Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.jobs.Stats(gctx, recruiterID)
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		out.Stats = stats
		return nil
	})
	g.Go(func() error {
		jobs, err := s.jobs.List(gctx, model.JobPostingsListOptions{RecruiterID: recruiterID, Limit: dashboardRecentJobs})
		if err != nil {
			return fmt.Errorf("load recent jobs: %w", err)
		}
		out.RecentJobs = jobs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeJob scores a job description. Function failures are not errors: the caller gets the
// demo analysis with Fallback set. Only invalid input and caller cancellation are returned.
func (s *RecruiterService) AnalyzeJob(
	ctx context.Context,
	fn ports.FunctionInvoker,
	req model.AnalyzeJobRequest,
) (*AnalysisResult, error) {
	if !req.CanAnalyze() {
		return nil, apperrors.Validation("title, description and at least one requirement are required")
	}
	req.Requirements = model.CompactStrings(req.Requirements)

	start := time.Now()
	raw, err := s.funcs.call(ctx, fn, s.cfg.AnalyzeName, req)
	var analysis *model.JobAnalysis
	if err == nil {
		analysis, err = decodeAnalysis(raw)
	}
	if err == nil {
		return &AnalysisResult{Analysis: analysis}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	s.funcs.record(s.cfg.AnalyzeName, metrics.ResultFallback, time.Since(start), err)
	if errors.Is(err, ports.ErrFunctionFailed) {
		s.logger.WarnContext(ctx, "analysis function error, serving demo analysis", "error", err)
		return &AnalysisResult{Analysis: rejectedAnalysis(), Fallback: true}, nil
	}
	s.logger.ErrorContext(ctx, "analysis failed, serving demo analysis", "error", err)
	return &AnalysisResult{Analysis: unreachableAnalysis(), Fallback: true}, nil
}

func decodeAnalysis(raw []byte) (*model.JobAnalysis, error) {
	var a model.JobAnalysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAnalysisPayload, err)
	}
	for _, v := range []int{a.Clarity, a.Realism, a.Inclusivity} {
		if v < 0 || v > 100 {
			return nil, fmt.Errorf("%w: score %d out of range", ErrInvalidAnalysisPayload, v)
		}
	}
	if a.Suggestions == nil {
		a.Suggestions = []string{}
	}
	return &a, nil
}

// MatchCandidates returns the candidates matched to one of the recruiter's postings, shaped by q.
// Genuine results are cached and their count is stored on the posting; any function failure
// or unusable reply yields the demo matches with Fallback set.
func (s *RecruiterService) MatchCandidates(
	ctx context.Context,
	fn ports.FunctionInvoker,
	recruiterID, jobID string,
	q model.MatchQuery,
) (*MatchResult, error) {
	job, err := s.GetJob(ctx, recruiterID, jobID)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.cachedMatches(ctx, job.ID); ok {
		s.funcs.record(s.cfg.MatchName, metrics.ResultCacheHit, 0, nil)
		return shapeMatches(job.ID, cached, q, false, true), nil
	}

	start := time.Now()
	raw, err := s.funcs.call(ctx, fn, s.cfg.MatchName, map[string]any{"jobPosting": job})
	var matches []model.CandidateMatch
	if err == nil {
		matches, err = s.decodeMatches(raw)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.funcs.record(s.cfg.MatchName, metrics.ResultFallback, time.Since(start), err)
		s.logger.WarnContext(ctx, "candidate matching unavailable, serving demo matches", "job_id", job.ID, "error", err)
		return shapeMatches(job.ID, demoMatches(), q, true, false), nil
	}

	s.storeMatches(ctx, job.ID, matches)
	if err := s.jobs.SetMatchCount(ctx, job.ID, len(matches)); err != nil {
		s.logger.WarnContext(ctx, "failed to record match count", "job_id", job.ID, "error", err)
	}
	return shapeMatches(job.ID, matches, q, false, false), nil
}

func shapeMatches(jobID string, all []model.CandidateMatch, q model.MatchQuery, fallback, cached bool) *MatchResult {
	return &MatchResult{
		JobID:    jobID,
		Matches:  q.Apply(all),
		Total:    len(all),
		Fallback: fallback,
		Cached:   cached,
	}
}

// decodeMatches locates the match list with the configured JMESPath expression and
// rejects the reply unless every entry is a complete match.
func (s *RecruiterService) decodeMatches(raw []byte) ([]model.CandidateMatch, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMatchPayload, err)
	}
	located, err := jmespath.Search(s.cfg.MatchPath, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMatchPayload, err)
	}
	list, ok := located.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list, got %T", ErrInvalidMatchPayload, located)
	}
	buf, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMatchPayload, err)
	}
	var matches []model.CandidateMatch
	if err := json.Unmarshal(buf, &matches); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMatchPayload, err)
	}
	for i, m := range matches {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: entry %d incomplete", ErrInvalidMatchPayload, i)
		}
	}
	if matches == nil {
		matches = []model.CandidateMatch{}
	}
	return matches, nil
}

func (s *RecruiterService) cachedMatches(ctx context.Context, jobID string) ([]model.CandidateMatch, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, matchCacheKeyPrefix+jobID)
	if err != nil {
		s.logger.WarnContext(ctx, "match cache read failed", "job_id", jobID, "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}
	var matches []model.CandidateMatch
	if err := json.Unmarshal(raw, &matches); err != nil {
		s.logger.WarnContext(ctx, "match cache entry unreadable", "job_id", jobID, "error", err)
		return nil, false
	}
	return matches, true
}

func (s *RecruiterService) storeMatches(ctx context.Context, jobID string, matches []model.CandidateMatch) {
	if s.cache == nil || s.cfg.MatchCacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(matches)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, matchCacheKeyPrefix+jobID, raw, s.cfg.MatchCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "match cache write failed", "job_id", jobID, "error", err)
	}
}
