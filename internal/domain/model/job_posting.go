//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxJobTitleLen   = 255
	maxJobCompanyLen = 255
)

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

const (
	JobStatusActive JobStatus = "active"
	JobStatusPaused JobStatus = "paused"
	JobStatusClosed JobStatus = "closed"
)

// Valid reports whether the job status is supported.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusActive, JobStatusPaused, JobStatusClosed:
		return true
	default:
		return false
	}
}

// ParseJobStatus normalizes a status string and reports whether it is supported.
func ParseJobStatus(value string) (JobStatus, bool) {
	s := JobStatus(strings.ToLower(strings.TrimSpace(value)))
	if s.Valid() {
		return s, true
	}
	return "", false
}

// JobPriority ranks how urgently a role needs filling.
type JobPriority string

const (
	JobPriorityLow    JobPriority = "low"
	JobPriorityMedium JobPriority = "medium"
	JobPriorityHigh   JobPriority = "high"
	JobPriorityUrgent JobPriority = "urgent"
)

// Valid reports whether the priority is supported.
func (p JobPriority) Valid() bool {
	switch p {
	case JobPriorityLow, JobPriorityMedium, JobPriorityHigh, JobPriorityUrgent:
		return true
	default:
		return false
	}
}

// ExperienceLevel is the seniority a posting targets.
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceJunior    ExperienceLevel = "junior"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceLead      ExperienceLevel = "lead"
	ExperiencePrincipal ExperienceLevel = "principal"
)

// Valid reports whether the experience level is supported.
func (l ExperienceLevel) Valid() bool {
	switch l {
	case ExperienceEntry, ExperienceJunior, ExperienceMid, ExperienceSenior, ExperienceLead, ExperiencePrincipal:
		return true
	default:
		return false
	}
}

// EmploymentType is the contract form of a posting.
type EmploymentType string

const (
	EmploymentFullTime  EmploymentType = "full-time"
	EmploymentPartTime  EmploymentType = "part-time"
	EmploymentContract  EmploymentType = "contract"
	EmploymentFreelance EmploymentType = "freelance"
)

// Valid reports whether the employment type is supported.
func (t EmploymentType) Valid() bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentFreelance:
		return true
	default:
		return false
	}
}

var supportedCurrencies = map[string]struct{}{"USD": {}, "EUR": {}, "GBP": {}, "CAD": {}}

// JobPosting is a recruiter-owned job advert.
type JobPosting struct {
	ID              string          `json:"id"                    db:"id"`
	RecruiterID     string          `json:"recruiter_id"          db:"recruiter_id"`
	Title           string          `json:"title"                 db:"title"`
	Company         string          `json:"company"               db:"company"`
	Description     string          `json:"description"           db:"description"`
	Requirements    []string        `json:"requirements"          db:"requirements"`
	Skills          []string        `json:"skills"                db:"skills"`
	Location        string          `json:"location"              db:"location"`
	SalaryMin       *int            `json:"salary_min,omitempty"  db:"salary_min"`
	SalaryMax       *int            `json:"salary_max,omitempty"  db:"salary_max"`
	SalaryCurrency  string          `json:"salary_currency"       db:"salary_currency"`
	RemoteAllowed   bool            `json:"remote_allowed"        db:"remote_allowed"`
	ExperienceLevel ExperienceLevel `json:"experience_level"      db:"experience_level"`
	EmploymentType  EmploymentType  `json:"employment_type"       db:"employment_type"`
	Status          JobStatus       `json:"status"                db:"status"`
	Priority        JobPriority     `json:"priority"              db:"priority"`
	Applicants      int             `json:"applicants"            db:"applicants"`
	Matches         int             `json:"matches"               db:"matches"`
	Analysis        *JobAnalysis    `json:"ai_analysis,omitempty" db:"ai_analysis"`
	AIScore         *int            `json:"ai_score,omitempty"    db:"ai_score"`
	CreatedAt       time.Time       `json:"created_at"            db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"            db:"updated_at"`
}

// JobPostingsListOptions controls paging and filtering for listing job postings.
// Q matches title, company and location via ILIKE substring.
type JobPostingsListOptions struct {
	RecruiterID string
	Status      *JobStatus
	Q           *string
	Limit       int
	Offset      int
}

// CreateJobPostingRequest represents parameters to create a JobPosting.
type CreateJobPostingRequest struct {
	Title           string          `json:"title"`
	Company         string          `json:"company"`
	Description     string          `json:"description"`
	Requirements    []string        `json:"requirements"`
	Skills          []string        `json:"skills,omitempty"`
	Location        string          `json:"location"`
	SalaryMin       *int            `json:"salary_min,omitempty"`
	SalaryMax       *int            `json:"salary_max,omitempty"`
	SalaryCurrency  string          `json:"salary_currency,omitempty"`
	RemoteAllowed   bool            `json:"remote_allowed"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty"`
	EmploymentType  EmploymentType  `json:"employment_type,omitempty"`
	Priority        JobPriority     `json:"priority,omitempty"`
	Analysis        *JobAnalysis    `json:"ai_analysis,omitempty"`
}

// Validate validates and normalizes CreateJobPostingRequest.
// Blank requirement lines are dropped and empty enums take the form defaults.
func (r *CreateJobPostingRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Company = strings.TrimSpace(r.Company)
	r.Location = strings.TrimSpace(r.Location)
	if r.Title == "" {
		return errors.New("title is required")
	}
	if utf8.RuneCountInString(r.Title) > maxJobTitleLen {
		return errors.New("title cannot exceed 255 characters")
	}
	if r.Company == "" {
		return errors.New("company is required")
	}
	if utf8.RuneCountInString(r.Company) > maxJobCompanyLen {
		return errors.New("company cannot exceed 255 characters")
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.New("description is required")
	}
	if r.Location == "" {
		return errors.New("location is required")
	}
	r.Requirements = CompactStrings(r.Requirements)
	r.Skills = CompactStrings(r.Skills)

	if err := r.validateSalary(); err != nil {
		return err
	}
	return r.normalizeEnums()
}

func (r *CreateJobPostingRequest) validateSalary() error {
	if r.SalaryMin != nil && *r.SalaryMin < 0 {
		return errors.New("salary_min must be >= 0")
	}
	if r.SalaryMax != nil && *r.SalaryMax < 0 {
		return errors.New("salary_max must be >= 0")
	}
	if r.SalaryMin != nil && r.SalaryMax != nil && *r.SalaryMin > *r.SalaryMax {
		return errors.New("salary_min cannot exceed salary_max")
	}
	r.SalaryCurrency = strings.ToUpper(strings.TrimSpace(r.SalaryCurrency))
	if r.SalaryCurrency == "" {
		r.SalaryCurrency = "USD"
	}
	if _, ok := supportedCurrencies[r.SalaryCurrency]; !ok {
		return errors.New("unsupported salary_currency")
	}
	return nil
}

func (r *CreateJobPostingRequest) normalizeEnums() error {
	if r.ExperienceLevel == "" {
		r.ExperienceLevel = ExperienceMid
	}
	if !r.ExperienceLevel.Valid() {
		return errors.New("invalid experience_level")
	}
	if r.EmploymentType == "" {
		r.EmploymentType = EmploymentFullTime
	}
	if !r.EmploymentType.Valid() {
		return errors.New("invalid employment_type")
	}
	if r.Priority == "" {
		r.Priority = JobPriorityMedium
	}
	if !r.Priority.Valid() {
		return errors.New("invalid priority")
	}
	return nil
}

// AnalyzeJobRequest is the payload sent for job-description analysis.
type AnalyzeJobRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Requirements    []string        `json:"requirements"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
}

// CanAnalyze reports whether the request has enough content to be worth analysing:
// a title, a description and at least one non-blank requirement.
func (r AnalyzeJobRequest) CanAnalyze() bool {
	return strings.TrimSpace(r.Title) != "" &&
		strings.TrimSpace(r.Description) != "" &&
		len(CompactStrings(r.Requirements)) > 0
}

// JobAnalysis scores a job description on a 0-100 scale per dimension.
type JobAnalysis struct {
	Clarity     int      `json:"clarity"`
	Realism     int      `json:"realism"`
	Inclusivity int      `json:"inclusivity"`
	Suggestions []string `json:"suggestions"`
}

// Score is the rounded mean of the three dimensions.
func (a *JobAnalysis) Score() int {
	if a == nil {
		return 0
	}
	sum := a.Clarity + a.Realism + a.Inclusivity
	return (sum + 1) / 3
}

// RecruitmentStats summarises a recruiter's pipeline for the dashboard.
type RecruitmentStats struct {
	TotalJobs       int `json:"total_jobs"`
	ActiveJobs      int `json:"active_jobs"`
	TotalApplicants int `json:"total_applicants"`
	TotalMatches    int `json:"total_matches"`
}

// CompactStrings trims each entry and drops blanks.
func CompactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
