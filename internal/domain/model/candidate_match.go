//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"slices"
	"strings"
)

// AnonymousCandidateName replaces a candidate's name in blind mode.
const AnonymousCandidateName = "Anonymous Candidate"

// Skill is one entry of a candidate's skill set.
type Skill struct {
	Name            string `json:"name"`
	Proficiency     string `json:"proficiency"`
	YearsExperience int    `json:"years_experience"`
}

// Candidate is the public card of a matched candidate.
type Candidate struct {
	ID           string  `json:"id"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	DisplayName  string  `json:"display_name"`
	Headline     string  `json:"headline"`
	Location     string  `json:"location"`
	Availability string  `json:"availability"`
	Skills       []Skill `json:"skills"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
}

// CandidateMatch is one scored candidate for a job posting.
type CandidateMatch struct {
	CandidateID     string    `json:"candidate_id"`
	OverallScore    int       `json:"overall_score"`
	SkillsMatch     int       `json:"skills_match"`
	CultureMatch    int       `json:"culture_match"`
	ExperienceMatch int       `json:"experience_match"`
	Reasoning       string    `json:"reasoning"`
	Strengths       []string  `json:"strengths"`
	Concerns        []string  `json:"concerns"`
	Candidate       Candidate `json:"candidate"`
}

// Valid reports whether the match carries the fields a result card needs.
func (m CandidateMatch) Valid() bool {
	return m.CandidateID != "" && m.Candidate.ID != "" && inScoreRange(m.OverallScore) &&
		inScoreRange(m.SkillsMatch) && inScoreRange(m.CultureMatch) && inScoreRange(m.ExperienceMatch)
}

func inScoreRange(v int) bool { return v >= 0 && v <= 100 }

// MatchSortKey selects the score matches are ordered by.
type MatchSortKey string

const (
	SortOverallScore MatchSortKey = "overall_score"
	SortSkillsMatch  MatchSortKey = "skills_match"
	SortCultureMatch MatchSortKey = "culture_match"
)

// Valid reports whether the sort key is supported.
func (k MatchSortKey) Valid() bool {
	switch k {
	case SortOverallScore, SortSkillsMatch, SortCultureMatch:
		return true
	default:
		return false
	}
}

func (k MatchSortKey) score(m CandidateMatch) int {
	switch k {
	case SortSkillsMatch:
		return m.SkillsMatch
	case SortCultureMatch:
		return m.CultureMatch
	default:
		return m.OverallScore
	}
}

// MatchQuery shapes a match list for display.
// Location is a case-insensitive substring; Availability must match exactly when set.
type MatchQuery struct {
	SortBy       MatchSortKey
	Location     string
	Availability string
	Blind        bool
}

// Apply filters, sorts (descending, stable) and optionally anonymises a copy of matches.
func (q MatchQuery) Apply(matches []CandidateMatch) []CandidateMatch {
	loc := strings.ToLower(strings.TrimSpace(q.Location))
	out := make([]CandidateMatch, 0, len(matches))
	for _, m := range matches {
		if loc != "" && !strings.Contains(strings.ToLower(m.Candidate.Location), loc) {
			continue
		}
		if q.Availability != "" && m.Candidate.Availability != q.Availability {
			continue
		}
		out = append(out, m.clone())
	}

	key := q.SortBy
	if !key.Valid() {
		key = SortOverallScore
	}
	slices.SortStableFunc(out, func(a, b CandidateMatch) int {
		return key.score(b) - key.score(a)
	})

	for i := range out {
		if q.Blind {
			out[i].Candidate.FirstName = ""
			out[i].Candidate.LastName = ""
			out[i].Candidate.AvatarURL = nil
			out[i].Candidate.DisplayName = AnonymousCandidateName
		} else {
			out[i].Candidate.DisplayName = strings.TrimSpace(out[i].Candidate.FirstName + " " + out[i].Candidate.LastName)
		}
	}
	return out
}

func (m CandidateMatch) clone() CandidateMatch {
	c := m
	c.Strengths = slices.Clone(m.Strengths)
	c.Concerns = slices.Clone(m.Concerns)
	c.Candidate.Skills = slices.Clone(m.Candidate.Skills)
	return c
}
