package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reelapps/reelhunter/internal/data/pgxutil"
	"github.com/reelapps/reelhunter/internal/domain/model"
	apperrors "github.com/reelapps/reelhunter/internal/errors"
)

const (
	jobPostingColumns = `id, recruiter_id, title, company, description, requirements, skills, location,
		salary_min, salary_max, salary_currency, remote_allowed, experience_level, employment_type,
		status, priority, applicants, matches, ai_analysis, ai_score, created_at, updated_at`

	defaultJobPostingLimit = 50
	maxJobPostingLimit     = 200
)

// JobPostingRepo provides database operations for job postings.
type JobPostingRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJobPostingRepo creates a new JobPostingRepo with real time provider.
func NewJobPostingRepo(db *sql.DB) *JobPostingRepo {
	return &JobPostingRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewJobPostingRepoWithTimeProvider creates a new JobPostingRepo with a custom time provider (useful for tests).
func NewJobPostingRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *JobPostingRepo {
	return &JobPostingRepo{DB: db, timeProvider: tp}
}

// Create validates req and inserts an active posting owned by recruiterID.
// When an analysis is attached its mean is stored as ai_score.
func (r *JobPostingRepo) Create(
	ctx context.Context,
	recruiterID string,
	req *model.CreateJobPostingRequest,
) (*model.JobPosting, error) {
	if req == nil {
		return nil, apperrors.Validation("create job posting request is required")
	}
	if strings.TrimSpace(recruiterID) == "" {
		return nil, required("recruiter_id", ErrRecruiterIDRequired)
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var score *int
	if req.Analysis != nil {
		s := req.Analysis.Score()
		score = &s
	}
	now := r.timeProvider.Now().UTC()

	return r.queryOne(ctx, `
		INSERT INTO job_postings (
			id, recruiter_id, title, company, description, requirements, skills, location,
			salary_min, salary_max, salary_currency, remote_allowed, experience_level, employment_type,
			status, priority, ai_analysis, ai_score, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19
		) RETURNING `+jobPostingColumns,
		uuid.NewString(),
		recruiterID,
		req.Title,
		req.Company,
		req.Description,
		req.Requirements,
		req.Skills,
		req.Location,
		req.SalaryMin,
		req.SalaryMax,
		req.SalaryCurrency,
		req.RemoteAllowed,
		string(req.ExperienceLevel),
		string(req.EmploymentType),
		string(model.JobStatusActive),
		string(req.Priority),
		req.Analysis,
		score,
		now,
	)
}

// GetByID retrieves a job posting by ID.
func (r *JobPostingRepo) GetByID(ctx context.Context, id string) (*model.JobPosting, error) {
	if strings.TrimSpace(id) == "" {
		return nil, required("id", ErrJobPostingIDRequired)
	}
	return r.queryOne(ctx, `SELECT `+jobPostingColumns+` FROM job_postings WHERE id = $1`, id)
}

// List returns postings newest first, filtered by recruiter, status and a free-text query.
func (r *JobPostingRepo) List(ctx context.Context, opts model.JobPostingsListOptions) ([]*model.JobPosting, error) {
	query, args := buildJobPostingListQuery(opts)

	var rowsOut []model.JobPosting
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.JobPosting])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list job postings: %w", apperrors.MapDBError(err))
	}

	res := make([]*model.JobPosting, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

func buildJobPostingListQuery(opts model.JobPostingsListOptions) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if opts.RecruiterID != "" {
		where = append(where, "recruiter_id = "+arg(opts.RecruiterID))
	}
	if opts.Status != nil {
		where = append(where, "status = "+arg(string(*opts.Status)))
	}
	if opts.Q != nil {
		if q := strings.TrimSpace(*opts.Q); q != "" {
			p := arg("%" + escapeLike(q) + "%")
			where = append(where, "(title ILIKE "+p+" OR company ILIKE "+p+" OR location ILIKE "+p+")")
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultJobPostingLimit
	}
	if limit > maxJobPostingLimit {
		limit = maxJobPostingLimit
	}
	offset := max(opts.Offset, 0)

	var b strings.Builder
	b.WriteString("SELECT " + jobPostingColumns + " FROM job_postings")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id LIMIT " + arg(limit) + " OFFSET " + arg(offset))
	return b.String(), args
}

// escapeLike neutralises LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Stats aggregates a recruiter's postings for the dashboard.
func (r *JobPostingRepo) Stats(ctx context.Context, recruiterID string) (model.RecruitmentStats, error) {
	var stats model.RecruitmentStats
	if strings.TrimSpace(recruiterID) == "" {
		return stats, required("recruiter_id", ErrRecruiterIDRequired)
	}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `
			SELECT
				COUNT(*),
				COUNT(*) FILTER (WHERE status = 'active'),
				COALESCE(SUM(applicants), 0),
				COALESCE(SUM(matches), 0)
			FROM job_postings
			WHERE recruiter_id = $1`, recruiterID,
		).Scan(&stats.TotalJobs, &stats.ActiveJobs, &stats.TotalApplicants, &stats.TotalMatches)
	})
	if err != nil {
		return model.RecruitmentStats{}, fmt.Errorf("failed to load recruitment stats: %w", apperrors.MapDBError(err))
	}
	return stats, nil
}

// SetMatchCount records how many candidates matched a posting.
func (r *JobPostingRepo) SetMatchCount(ctx context.Context, id string, matches int) error {
	if strings.TrimSpace(id) == "" {
		return required("id", ErrJobPostingIDRequired)
	}
	if matches < 0 {
		return apperrors.ValidationField("matches", "matches must be >= 0")
	}
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE job_postings SET matches = $2, updated_at = $3 WHERE id = $1`,
			id, matches, r.timeProvider.Now().UTC(),
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if affected == 0 {
		return notFound(ErrJobPostingNotFound)
	}
	return nil
}

func (r *JobPostingRepo) queryOne(ctx context.Context, query string, args ...any) (*model.JobPosting, error) {
	var out model.JobPosting
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.JobPosting])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(ErrJobPostingNotFound)
	}
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}
