package service

import "github.com/reelapps/reelhunter/internal/domain/model"

// Demo results shown when the analysis and matching functions are unavailable.

// rejectedAnalysis is served when the analysis function answered with an error.
func rejectedAnalysis() *model.JobAnalysis {
	return &model.JobAnalysis{
		Clarity:     85,
		Realism:     78,
		Inclusivity: 92,
		Suggestions: []string{
			"Consider adding more specific technical requirements",
			"Include information about team size and structure",
			"Mention opportunities for professional development",
		},
	}
}

// unreachableAnalysis is served when the analysis function could not be called or decoded.
func unreachableAnalysis() *model.JobAnalysis {
	return &model.JobAnalysis{
		Clarity:     80,
		Realism:     75,
		Inclusivity: 88,
		Suggestions: []string{
			"Review technical requirements for clarity",
			"Consider salary range transparency",
			"Add diversity and inclusion statement",
		},
	}
}

func demoMatches() []model.CandidateMatch {
	return []model.CandidateMatch{
		{
			CandidateID:     "1",
			OverallScore:    92,
			SkillsMatch:     95,
			CultureMatch:    88,
			ExperienceMatch: 93,
			Reasoning:       "Exceptional technical skills alignment, excellent experience level fit, strong cultural alignment.",
			Strengths:       []string{"React expertise", "Team leadership", "Problem solving"},
			Concerns:        []string{"Limited backend experience"},
			Candidate: model.Candidate{
				ID:           "1",
				FirstName:    "Sarah",
				LastName:     "Chen",
				Headline:     "Senior Frontend Developer with 6+ years React experience",
				Location:     "San Francisco, CA",
				Availability: "available",
				Skills: []model.Skill{
					{Name: "React", Proficiency: "expert", YearsExperience: 6},
					{Name: "TypeScript", Proficiency: "advanced", YearsExperience: 4},
					{Name: "Node.js", Proficiency: "intermediate", YearsExperience: 3},
				},
			},
		},
		{
			CandidateID:     "2",
			OverallScore:    87,
			SkillsMatch:     89,
			CultureMatch:    85,
			ExperienceMatch: 87,
			Reasoning:       "Strong technical skills alignment, good experience level, good cultural fit.",
			Strengths:       []string{"Full-stack capabilities", "Agile experience", "Communication skills"},
			Concerns:        []string{"Remote work preference", "Salary expectations"},
			Candidate: model.Candidate{
				ID:           "2",
				FirstName:    "Marcus",
				LastName:     "Johnson",
				Headline:     "Full-Stack Developer passionate about user experience",
				Location:     "Remote",
				Availability: "open",
				Skills: []model.Skill{
					{Name: "React", Proficiency: "advanced", YearsExperience: 4},
					{Name: "Python", Proficiency: "expert", YearsExperience: 5},
					{Name: "AWS", Proficiency: "intermediate", YearsExperience: 2},
				},
			},
		},
		{
			CandidateID:     "3",
			OverallScore:    78,
			SkillsMatch:     82,
			CultureMatch:    75,
			ExperienceMatch: 77,
			Reasoning:       "Good skills match with some gaps, adequate experience level, potential cultural fit concerns.",
			Strengths:       []string{"Quick learner", "Open source contributions", "Design skills"},
			Concerns:        []string{"Limited React experience", "Junior level"},
			Candidate: model.Candidate{
				ID:           "3",
				FirstName:    "Emily",
				LastName:     "Rodriguez",
				Headline:     "Frontend Developer with strong design background",
				Location:     "Austin, TX",
				Availability: "available",
				Skills: []model.Skill{
					{Name: "Vue.js", Proficiency: "advanced", YearsExperience: 3},
					{Name: "React", Proficiency: "intermediate", YearsExperience: 1},
					{Name: "UI/UX Design", Proficiency: "expert", YearsExperience: 4},
				},
			},
		},
	}
}
