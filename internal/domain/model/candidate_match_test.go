package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMatches() []CandidateMatch {
	avatar := "https://cdn.example.com/a.png"
	return []CandidateMatch{
		{
			CandidateID: "3", OverallScore: 78, SkillsMatch: 82, CultureMatch: 75,
			Candidate: Candidate{ID: "3", FirstName: "Emily", LastName: "Rodriguez", Location: "Austin, TX", Availability: "available"},
		},
		{
			CandidateID: "1", OverallScore: 92, SkillsMatch: 95, CultureMatch: 88,
			Candidate: Candidate{ID: "1", FirstName: "Sarah", LastName: "Chen", Location: "San Francisco, CA", Availability: "available", AvatarURL: &avatar},
		},
		{
			CandidateID: "2", OverallScore: 87, SkillsMatch: 89, CultureMatch: 90,
			Candidate: Candidate{ID: "2", FirstName: "Marcus", LastName: "Johnson", Location: "Remote", Availability: "open"},
		},
	}
}

func ids(ms []CandidateMatch) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.CandidateID)
	}
	return out
}

func TestMatchQuery_SortsDescending(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, ids(MatchQuery{}.Apply(sampleMatches())))
	assert.Equal(t, []string{"2", "1", "3"}, ids(MatchQuery{SortBy: SortCultureMatch}.Apply(sampleMatches())))
	assert.Equal(t, []string{"1", "2", "3"}, ids(MatchQuery{SortBy: "bogus"}.Apply(sampleMatches())))
}

func TestMatchQuery_Filters(t *testing.T) {
	got := MatchQuery{Location: "tx"}.Apply(sampleMatches())
	assert.Equal(t, []string{"3"}, ids(got))

	got = MatchQuery{Availability: "available"}.Apply(sampleMatches())
	assert.Equal(t, []string{"1", "3"}, ids(got))

	got = MatchQuery{Availability: "Available"}.Apply(sampleMatches())
	assert.Empty(t, got)
}

func TestMatchQuery_BlindModeHidesIdentity(t *testing.T) {
	in := sampleMatches()
	got := MatchQuery{Blind: true}.Apply(in)
	require.Len(t, got, 3)
	for _, m := range got {
		assert.Equal(t, AnonymousCandidateName, m.Candidate.DisplayName)
		assert.Empty(t, m.Candidate.FirstName)
		assert.Nil(t, m.Candidate.AvatarURL)
	}
	// input untouched
	assert.Equal(t, "Sarah", in[1].Candidate.FirstName)
	assert.NotNil(t, in[1].Candidate.AvatarURL)
}

func TestMatchQuery_DisplayName(t *testing.T) {
	got := MatchQuery{}.Apply(sampleMatches())
	assert.Equal(t, "Sarah Chen", got[0].Candidate.DisplayName)
}

func TestCandidateMatch_Valid(t *testing.T) {
	m := sampleMatches()[0]
	assert.True(t, m.Valid())
	m.OverallScore = 101
	assert.False(t, m.Valid())
	m = sampleMatches()[0]
	m.CandidateID = ""
	assert.False(t, m.Valid())
}
