package services

import (
	"math"
	"strings"

	"farrelnajib/ai-hiring/internal/models"
)

// Scoring is deliberately mechanical: fixed point allocations per section,
// independent of the job's stated requirement level. Both functions are total
// over any well-shaped profile/job, including fully-empty ones.

// ResumeQualityScore computes the weighted completeness score (0-100) of an
// extracted profile.
func ResumeQualityScore(profile *models.CandidateProfile) int {
	if profile == nil {
		return 0
	}

	score := 0.0

	// Personal info completeness (20 points)
	if strings.TrimSpace(profile.PersonalInfo.Name) != "" {
		score += 5
	}
	if strings.Contains(profile.PersonalInfo.Email, "@") {
		score += 5
	}
	if strings.TrimSpace(profile.PersonalInfo.Phone) != "" {
		score += 5
	}
	if strings.TrimSpace(profile.PersonalInfo.Location) != "" {
		score += 5
	}

	// Skills (25 points)
	score += math.Min(25, float64(len(dedupeSkills(profile.Skills)))*2.5)

	// Experience (30 points)
	score += math.Min(30, float64(validExperienceCount(profile))*10)

	// Education (15 points)
	score += math.Min(15, float64(validEducationCount(profile))*7.5)

	// Projects (10 points)
	validProjects := 0
	for _, proj := range profile.Projects {
		if strings.TrimSpace(proj.Name) != "" && strings.TrimSpace(proj.Description) != "" {
			validProjects++
		}
	}
	score += math.Min(10, float64(validProjects)*5)

	return int(math.Min(100, math.Round(score)))
}

// JobMatchScore computes how well a profile matches a job posting (0-100).
// Skill matching is substring-based after case-folding, to tolerate phrasing
// differences like "Node" vs "Node.js".
func JobMatchScore(profile *models.CandidateProfile, job *models.Job) int {
	if profile == nil || job == nil {
		return 0
	}

	score := 0.0

	// Skills matching (40 points)
	candidateSkills := dedupeSkills(profile.Skills)
	requiredSkills := dedupeSkills(job.Skills)

	if len(candidateSkills) > 0 && len(requiredSkills) > 0 {
		matching := 0
		for _, skill := range candidateSkills {
			for _, req := range requiredSkills {
				if strings.Contains(req, skill) || strings.Contains(skill, req) {
					matching++
					break
				}
			}
		}
		score += float64(matching) / float64(len(requiredSkills)) * 40
	}

	// Experience relevance (30 points)
	score += math.Min(30, float64(validExperienceCount(profile))*10)

	// Education (flat 20 points for at least one valid entry)
	if validEducationCount(profile) > 0 {
		score += 20
	}

	// Contact info completeness (10 points)
	completed := 0
	for _, field := range []string{profile.PersonalInfo.Name, profile.PersonalInfo.Email, profile.PersonalInfo.Phone} {
		if strings.TrimSpace(field) != "" {
			completed++
		}
	}
	score += float64(completed) / 3 * 10

	return int(math.Min(100, math.Round(score)))
}

// GenerateAnalysis derives a strengths/weaknesses summary from simple
// thresholds on the extracted data and the computed match score. No AI here.
func GenerateAnalysis(profile *models.CandidateProfile, job *models.Job, jobMatchScore int) *models.Analysis {
	analysis := &models.Analysis{
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
	}

	if profile != nil {
		if len(profile.Skills) > 5 {
			analysis.Strengths = append(analysis.Strengths, "Strong technical skill set with diverse technologies")
		}
		if len(profile.Experience) > 1 {
			analysis.Strengths = append(analysis.Strengths, "Relevant professional experience across multiple roles")
		}
		if profile.PersonalInfo.Email != "" && profile.PersonalInfo.Phone != "" {
			analysis.Strengths = append(analysis.Strengths, "Complete contact information provided")
		}
	}

	if jobMatchScore < 50 {
		analysis.Weaknesses = append(analysis.Weaknesses,
			"Limited alignment with required job skills",
			"May need additional relevant experience")
	} else if jobMatchScore < 70 {
		analysis.Weaknesses = append(analysis.Weaknesses, "Some gaps in required technical skills")
	}

	analysis.Recommendations = append(analysis.Recommendations,
		"Highlight specific achievements with quantifiable results",
		"Tailor resume content to match job requirements",
		"Consider adding relevant certifications or training")

	return analysis
}

// dedupeSkills lowercases, trims and de-duplicates a skill list. De-dup
// happens here at scoring time; stored profiles keep their original casing.
func dedupeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	var result []string

	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		result = append(result, skill)
	}

	return result
}

func validExperienceCount(profile *models.CandidateProfile) int {
	count := 0
	for _, exp := range profile.Experience {
		if strings.TrimSpace(exp.Company) != "" && strings.TrimSpace(exp.Position) != "" {
			count++
		}
	}
	return count
}

func validEducationCount(profile *models.CandidateProfile) int {
	count := 0
	for _, edu := range profile.Education {
		if strings.TrimSpace(edu.Institution) != "" && strings.TrimSpace(edu.Degree) != "" {
			count++
		}
	}
	return count
}
