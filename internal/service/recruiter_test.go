package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/reelapps/reelhunter/config"
	"github.com/reelapps/reelhunter/internal/domain/model"
	apperrors "github.com/reelapps/reelhunter/internal/errors"
	"github.com/reelapps/reelhunter/internal/mocks"
	"github.com/reelapps/reelhunter/internal/observability/metrics"
	"github.com/reelapps/reelhunter/internal/observability/statsd"
	"github.com/reelapps/reelhunter/internal/ports"
)

const (
	testRecruiterID = "rec-1"
	testJobID       = "job-1"
)

type recruiterFixture struct {
	svc      *RecruiterService
	jobs     *mocks.MockJobPostingRepository
	cache    *mocks.MockCacheRepository
	fn       *mocks.MockFunctionInvoker
	recorder *statsd.Recorder
}

func newRecruiterFixture(t *testing.T, mutate func(*config.FunctionsConfig)) recruiterFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := recruiterFixture{
		jobs:     mocks.NewMockJobPostingRepository(ctrl),
		cache:    mocks.NewMockCacheRepository(ctrl),
		fn:       mocks.NewMockFunctionInvoker(ctrl),
		recorder: &statsd.Recorder{},
	}
	cfg := config.FunctionsConfig{MatchCacheTTL: 10 * time.Minute}
	cfg.Breaker.Sanitize()
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewRecruiterService(RecruiterServiceOptions{
		Jobs:    f.jobs,
		Cache:   f.cache,
		Config:  cfg,
		Metrics: f.recorder,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func ownedJob() *model.JobPosting {
	return &model.JobPosting{ID: testJobID, RecruiterID: testRecruiterID, Title: "Frontend Engineer"}
}

func matchJSON(id string, overall, skills, culture int, location string) map[string]any {
	return map[string]any{
		"candidate_id":     id,
		"overall_score":    overall,
		"skills_match":     skills,
		"culture_match":    culture,
		"experience_match": 80,
		"reasoning":        "fit",
		"strengths":        []string{"Go"},
		"concerns":         []string{},
		"candidate": map[string]any{
			"id":           id,
			"first_name":   "Cand",
			"last_name":    id,
			"location":     location,
			"availability": "available",
		},
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func analyzeRequest() model.AnalyzeJobRequest {
	return model.AnalyzeJobRequest{
		Title:           "Frontend Engineer",
		Description:     "Build the hiring UI",
		Requirements:    []string{"React", "  ", "TypeScript"},
		ExperienceLevel: model.ExperienceSenior,
	}
}

func TestNewRecruiterService(t *testing.T) {
	_, err := NewRecruiterService(RecruiterServiceOptions{})
	require.Error(t, err)

	ctrl := gomock.NewController(t)
	_, err = NewRecruiterService(RecruiterServiceOptions{
		Jobs:   mocks.NewMockJobPostingRepository(ctrl),
		Config: config.FunctionsConfig{MatchPath: "matches[?"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid match path")

	svc, err := NewRecruiterService(RecruiterServiceOptions{Jobs: mocks.NewMockJobPostingRepository(ctrl)})
	require.NoError(t, err)
	assert.Equal(t, "match-candidates", svc.cfg.MatchName)
	assert.Equal(t, "analyze-job", svc.cfg.AnalyzeName)
	assert.Equal(t, DefaultMatchPath, svc.cfg.MatchPath)
}

func TestRecruiterService_CreateJob(t *testing.T) {
	f := newRecruiterFixture(t, nil)
	ctx := context.Background()
	req := &model.CreateJobPostingRequest{Title: "Engineer"}

	f.jobs.EXPECT().Create(ctx, testRecruiterID, req).Return(ownedJob(), nil)
	got, err := f.svc.CreateJob(ctx, testRecruiterID, req)
	require.NoError(t, err)
	assert.Equal(t, testJobID, got.ID)

	f.jobs.EXPECT().Create(ctx, testRecruiterID, req).Return(nil, apperrors.Validation("title is required"))
	_, err = f.svc.CreateJob(ctx, testRecruiterID, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRecruiterService_ListJobs_ScopesToRecruiter(t *testing.T) {
	f := newRecruiterFixture(t, nil)
	ctx := context.Background()
	status := model.JobStatusActive

	f.jobs.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, opts model.JobPostingsListOptions) ([]*model.JobPosting, error) {
			assert.Equal(t, testRecruiterID, opts.RecruiterID)
			assert.Equal(t, &status, opts.Status)
			assert.Equal(t, 10, opts.Limit)
			return []*model.JobPosting{ownedJob()}, nil
		})

	jobs, err := f.svc.ListJobs(ctx, testRecruiterID, model.JobPostingsListOptions{
		RecruiterID: "someone-else",
		Status:      &status,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestRecruiterService_GetJob_HidesOtherRecruitersPostings(t *testing.T) {
	f := newRecruiterFixture(t, nil)
	ctx := context.Background()

	other := ownedJob()
	other.RecruiterID = "rec-2"
	f.jobs.EXPECT().GetByID(ctx, testJobID).Return(other, nil)

	_, err := f.svc.GetJob(ctx, testRecruiterID, testJobID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	f.jobs.EXPECT().GetByID(ctx, testJobID).Return(ownedJob(), nil)
	job, err := f.svc.GetJob(ctx, testRecruiterID, testJobID)
	require.NoError(t, err)
	assert.Equal(t, testJobID, job.ID)
}

func TestRecruiterService_Dashboard(t *testing.T) {
	f := newRecruiterFixture(t, nil)
	ctx := context.Background()
	stats := model.RecruitmentStats{TotalJobs: 3, ActiveJobs: 2, TotalApplicants: 40, TotalMatches: 9}

	f.jobs.EXPECT().Stats(gomock.Any(), testRecruiterID).Return(stats, nil)
	f.jobs.EXPECT().
		List(gomock.Any(), model.JobPostingsListOptions{RecruiterID: testRecruiterID, Limit: dashboardRecentJobs}).
		Return([]*model.JobPosting{ownedJob()}, nil)

	got, err := f.svc.Dashboard(ctx, testRecruiterID)
	require.NoError(t, err)
	assert.Equal(t, stats, got.Stats)
	assert.Len(t, got.RecentJobs, 1)
}

func TestRecruiterService_Dashboard_Error(t *testing.T) {
	f := newRecruiterFixture(t, nil)
	boom := errors.New("db down")

	f.jobs.EXPECT().Stats(gomock.Any(), testRecruiterID).Return(model.RecruitmentStats{}, boom)
	f.jobs.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	_, err := f.svc.Dashboard(context.Background(), testRecruiterID)
	require.ErrorIs(t, err, boom)
}

func TestRecruiterService_AnalyzeJob(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete request is rejected without calling the function", func(t *testing.T) {
		f := newRecruiterFixture(t, nil)
		req := analyzeRequest()
		req.Requirements = []string{" "}
		_, err := f.svc.AnalyzeJob(ctx, f.fn, req)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("decodes the function reply", func(t *testing.T) {
		f := newRecruiterFixture(t, nil)
		f.fn.EXPECT().Invoke(ctx, "analyze-job", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, body any) ([]byte, error) {
				req, ok := body.(model.AnalyzeJobRequest)
				require.True(t, ok)
				assert.Equal(t, []string{"React", "TypeScript"}, req.Requirements)
				return []byte(`{"clarity":70,"realism":60,"inclusivity":90}`), nil
			})

		got, err := f.svc.AnalyzeJob(ctx, f.fn, analyzeRequest())
		require.NoError(t, err)
		assert.False(t, got.Fallback)
		assert.Equal(t, 70, got.Analysis.Clarity)
		assert.Equal(t, []string{}, got.Analysis.Suggestions)

		calls := f.recorder.Samples("function.call")
		require.Len(t, calls, 1)
		assert.Equal(t, metrics.ResultSuccess, calls[0].Tags["result"])
	})

	t.Run("function error serves the rejected demo analysis", func(t *testing.T) {
		f := newRecruiterFixture(t, nil)
		f.fn.EXPECT().Invoke(ctx, "analyze-job", gomock.Any()).
			Return(nil, fmt.Errorf("invoke analyze-job: %w", ports.ErrFunctionFailed))

		got, err := f.svc.AnalyzeJob(ctx, f.fn, analyzeRequest())
		require.NoError(t, err)
		assert.True(t, got.Fallback)
		assert.Equal(t, rejectedAnalysis(), got.Analysis)

		calls := f.recorder.Samples("function.call")
		require.Len(t, calls, 1)
		assert.Equal(t, metrics.ResultFallback, calls[0].Tags["result"])
	})

	t.Run("transport error serves the unreachable demo analysis", func(t *testing.T) {
		f := newRecruiterFixture(t, nil)
		f.fn.EXPECT().Invoke(ctx, "analyze-job", gomock.Any()).Return(nil, errors.New("connection refused"))

		got, err := f.svc.AnalyzeJob(ctx, f.fn, analyzeRequest())
		require.NoError(t, err)
		assert.True(t, got.Fallback)
		assert.Equal(t, unreachableAnalysis(), got.Analysis)
	})

	t.Run("undecodable reply serves the unreachable demo analysis", func(t *testing.T) {
		f := newRecruiterFixture(t, nil)
		f.fn.EXPECT().Invoke(ctx, "analyze-job", gomock.Any()).Return([]byte(`{"clarity":"high"}`), nil)

		got, err := f.svc.AnalyzeJob(ctx, f.fn, analyzeRequest())
		require.NoError(t, err)
		assert.Equal(t, unreachableAnalysis(), got.Analysis)
	})

	t.Run("out of range scores are rejected", func(t *testing.T) {
		f := newRecruiterFixture(t, nil)
		f.fn.EXPECT().Invoke(ctx, "analyze-job", gomock.Any()).
			Return([]byte(`{"clarity":170,"realism":60,"inclusivity":90}`), nil)

		got, err := f.svc.AnalyzeJob(ctx, f.fn, analyzeRequest())
		require.NoError(t, err)
		assert.True(t, got.Fallback)
	})

	t.Run("missing invoker serves a fallback", func(t *testing.T) {
		f := newRecruiterFixture(t, nil)
		got, err := f.svc.AnalyzeJob(ctx, nil, analyzeRequest())
		require.NoError(t, err)
		assert.Equal(t, unreachableAnalysis(), got.Analysis)
	})

	t.Run("caller cancellation is returned", func(t *testing.T) {
		f := newRecruiterFixture(t, nil)
		cctx, cancel := context.WithCancel(ctx)
		f.fn.EXPECT().Invoke(cctx, "analyze-job", gomock.Any()).DoAndReturn(
			func(context.Context, string, any) ([]byte, error) {
				cancel()
				return nil, context.Canceled
			})

		_, err := f.svc.AnalyzeJob(cctx, f.fn, analyzeRequest())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestRecruiterService_MatchCandidates_FromFunction(t *testing.T) {
	f := newRecruiterFixture(t, nil)
	ctx := context.Background()
	payload := mustJSON(t, map[string]any{"matches": []any{
		matchJSON("a", 70, 90, 60, "Cape Town"),
		matchJSON("b", 95, 80, 75, "Johannesburg"),
	}})

	f.jobs.EXPECT().GetByID(ctx, testJobID).Return(ownedJob(), nil)
	f.cache.EXPECT().Get(ctx, "matches:"+testJobID).Return(nil, nil)
	f.fn.EXPECT().Invoke(ctx, "match-candidates", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, body any) ([]byte, error) {
			m, ok := body.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, ownedJob(), m["jobPosting"])
			return payload, nil
		})
	f.cache.EXPECT().Set(ctx, "matches:"+testJobID, gomock.Any(), 10*time.Minute).Return(nil)
	f.jobs.EXPECT().SetMatchCount(ctx, testJobID, 2).Return(nil)

	got, err := f.svc.MatchCandidates(ctx, f.fn, testRecruiterID, testJobID, model.MatchQuery{})
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	assert.False(t, got.Cached)
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Matches, 2)
	assert.Equal(t, "b", got.Matches[0].CandidateID)
	assert.Equal(t, "Cand b", got.Matches[0].Candidate.DisplayName)
}

func TestRecruiterService_MatchCandidates_BareListAndQuery(t *testing.T) {
	f := newRecruiterFixture(t, nil)
	ctx := context.Background()
	payload := mustJSON(t, []any{
		matchJSON("a", 70, 90, 60, "Cape Town"),
		matchJSON("b", 95, 80, 75, "Johannesburg"),
		matchJSON("c", 60, 85, 99, "Cape Town"),
	})

	f.jobs.EXPECT().GetByID(ctx, testJobID).Return(ownedJob(), nil)
	f.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	f.fn.EXPECT().Invoke(ctx, "match-candidates", gomock.Any()).Return(payload, nil)
	f.cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.jobs.EXPECT().SetMatchCount(ctx, testJobID, 3).Return(nil)

	got, err := f.svc.MatchCandidates(ctx, f.fn, testRecruiterID, testJobID, model.MatchQuery{
		SortBy:   model.SortSkillsMatch,
		Location: "cape",
		Blind:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Total)
	require.Len(t, got.Matches, 2)
	assert.Equal(t, "a", got.Matches[0].CandidateID)
	assert.Equal(t, "c", got.Matches[1].CandidateID)
	for _, m := range got.Matches {
		assert.Empty(t, m.Candidate.FirstName)
		assert.Equal(t, model.AnonymousCandidateName, m.Candidate.DisplayName)
	}
}

func TestRecruiterService_MatchCandidates_EmptyListIsNotAFallback(t *testing.T) {
	for _, reply := range []string{`{"matches":[]}`, `[]`} {
		t.Run(reply, func(t *testing.T) {
			f := newRecruiterFixture(t, nil)
			ctx := context.Background()

			f.jobs.EXPECT().GetByID(ctx, testJobID).Return(ownedJob(), nil)
			f.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
			f.fn.EXPECT().Invoke(ctx, "match-candidates", gomock.Any()).Return([]byte(reply), nil)
			f.cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			f.jobs.EXPECT().SetMatchCount(ctx, testJobID, 0).Return(nil)

			got, err := f.svc.MatchCandidates(ctx, f.fn, testRecruiterID, testJobID, model.MatchQuery{})
			require.NoError(t, err)
			assert.False(t, got.Fallback)
			assert.Equal(t, 0, got.Total)
			assert.Empty(t, got.Matches)
		})
	}
}

func TestRecruiterService_MatchCandidates_CustomPath(t *testing.T) {
	f := newRecruiterFixture(t, func(c *config.FunctionsConfig) { c.MatchPath = "data.results" })
	ctx := context.Background()
	payload := mustJSON(t, map[string]any{"data": map[string]any{"results": []any{matchJSON("a", 70, 90, 60, "")}}})

	f.jobs.EXPECT().GetByID(ctx, testJobID).Return(ownedJob(), nil)
	f.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	f.fn.EXPECT().Invoke(ctx, gomock.Any(), gomock.Any()).Return(payload, nil)
	f.cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.jobs.EXPECT().SetMatchCount(ctx, testJobID, 1).Return(nil)

	got, err := f.svc.MatchCandidates(ctx, f.fn, testRecruiterID, testJobID, model.MatchQuery{})
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	assert.Len(t, got.Matches, 1)
}

func TestRecruiterService_MatchCandidates_CacheHit(t *testing.T) {
	f := newRecruiterFixture(t, nil)
	ctx := context.Background()
	cached := mustJSON(t, []any{matchJSON("a", 70, 90, 60, "")})

	f.jobs.EXPECT().GetByID(ctx, testJobID).Return(ownedJob(), nil)
	f.cache.EXPECT().Get(ctx, "matches:"+testJobID).Return(cached, nil)

	got, err := f.svc.MatchCandidates(ctx, f.fn, testRecruiterID, testJobID, model.MatchQuery{})
	require.NoError(t, err)
	assert.True(t, got.Cached)
	assert.Len(t, got.Matches, 1)

	calls := f.recorder.Samples("function.call")
	require.Len(t, calls, 1)
	assert.Equal(t, metrics.ResultCacheHit, calls[0].Tags["result"])
}

func TestRecruiterService_MatchCandidates_Fallbacks(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		reply []byte
		err   error
	}{
		{name: "function error", err: fmt.Errorf("invoke: %w", ports.ErrFunctionFailed)},
		{name: "transport error", err: errors.New("connection reset")},
		{name: "not json", reply: []byte("<html>")},
		{name: "object without matches", reply: []byte(`{"status":"ok"}`)},
		{name: "incomplete entry", reply: []byte(`{"matches":[{"candidate_id":"x","overall_score":50}]}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecruiterFixture(t, nil)
			f.jobs.EXPECT().GetByID(ctx, testJobID).Return(ownedJob(), nil)
			f.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
			f.fn.EXPECT().Invoke(ctx, "match-candidates", gomock.Any()).Return(tt.reply, tt.err)
			// Fallbacks are neither cached nor counted.
			f.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			f.jobs.EXPECT().SetMatchCount(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			got, err := f.svc.MatchCandidates(ctx, f.fn, testRecruiterID, testJobID, model.MatchQuery{})
			require.NoError(t, err)
			assert.True(t, got.Fallback)
			require.Len(t, got.Matches, 3)
			assert.Equal(t, "Sarah Chen", got.Matches[0].Candidate.DisplayName)
		})
	}
}

func TestRecruiterService_MatchCandidates_NotOwned(t *testing.T) {
	f := newRecruiterFixture(t, nil)
	ctx := context.Background()
	other := ownedJob()
	other.RecruiterID = "rec-2"
	f.jobs.EXPECT().GetByID(ctx, testJobID).Return(other, nil)

	_, err := f.svc.MatchCandidates(ctx, f.fn, testRecruiterID, testJobID, model.MatchQuery{})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRecruiterService_MatchCandidates_CacheErrorsAreIgnored(t *testing.T) {
	f := newRecruiterFixture(t, nil)
	ctx := context.Background()
	payload := mustJSON(t, []any{matchJSON("a", 70, 90, 60, "")})

	f.jobs.EXPECT().GetByID(ctx, testJobID).Return(ownedJob(), nil)
	f.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, errors.New("redis down"))
	f.fn.EXPECT().Invoke(ctx, gomock.Any(), gomock.Any()).Return(payload, nil)
	f.cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
	f.jobs.EXPECT().SetMatchCount(ctx, testJobID, 1).Return(errors.New("db down"))

	got, err := f.svc.MatchCandidates(ctx, f.fn, testRecruiterID, testJobID, model.MatchQuery{})
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	assert.Len(t, got.Matches, 1)
}

func TestRecruiterService_BreakerOpensAfterFailures(t *testing.T) {
	f := newRecruiterFixture(t, func(c *config.FunctionsConfig) {
		c.Breaker = config.BreakerConfig{MaxRequests: 1, Timeout: time.Minute, MinRequests: 2, FailureRatio: 1}
	})
	ctx := context.Background()

	// The third call must be short-circuited by the open breaker.
	f.fn.EXPECT().Invoke(ctx, "analyze-job", gomock.Any()).Return(nil, errors.New("timeout")).Times(2)

	for range 3 {
		got, err := f.svc.AnalyzeJob(ctx, f.fn, analyzeRequest())
		require.NoError(t, err)
		assert.True(t, got.Fallback)
	}
	assert.Equal(t, gobreaker.StateOpen, f.svc.funcs.state("analyze-job"))
	assert.Equal(t, gobreaker.StateClosed, f.svc.funcs.state("match-candidates"))
}
