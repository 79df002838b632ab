package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"farrelnajib/ai-hiring/internal/models"
)

const (
	// Inputs below this length are rejected before any provider is called.
	minResumeTextLength = 50

	// Cap on resume text embedded into the extraction prompt, to bound
	// provider cost and latency.
	promptTextCap = 1500
)

// ResumeExtractorService turns raw resume text into a structured candidate
// profile. Providers are tried in order; when every one of them fails, a
// local heuristic parse produces a well-shaped (possibly mostly empty)
// profile instead. Only ErrInsufficientText is ever returned as an error.
type ResumeExtractorService interface {
	ExtractProfile(ctx context.Context, resumeText string) (*models.CandidateProfile, error)
}

type resumeExtractorService struct {
	chain *ProviderChain
}

func NewResumeExtractorService(chain *ProviderChain) ResumeExtractorService {
	return &resumeExtractorService{chain: chain}
}

func (e *resumeExtractorService) ExtractProfile(ctx context.Context, resumeText string) (*models.CandidateProfile, error) {
	trimmed := strings.TrimSpace(resumeText)
	if len(trimmed) < minResumeTextLength {
		return nil, ErrInsufficientText
	}

	prompt := buildExtractionPrompt(trimmed)

	var profile *models.CandidateProfile
	err := e.chain.TryEach(ctx, prompt, func(text, provider string) error {
		parsed, parseErr := parseProfileResponse(text)
		if parseErr != nil {
			return parseErr
		}
		profile = parsed
		return nil
	})

	if err != nil {
		log.Printf("⚠️  All AI extraction attempts failed, using manual parsing: %v\n", err)
		return parseResumeManually(trimmed), nil
	}

	return profile, nil
}

func buildExtractionPrompt(resumeText string) string {
	if len(resumeText) > promptTextCap {
		// Back off to a rune boundary so the cut never splits a multi-byte
		// character.
		cut := promptTextCap
		for cut > 0 && !utf8.RuneStart(resumeText[cut]) {
			cut--
		}
		resumeText = resumeText[:cut]
	}

	return fmt.Sprintf(`Extract information from this resume and return only a JSON object with this exact structure:

{
    "personalInfo": {
        "name": "full name",
        "email": "email address",
        "phone": "phone number",
        "location": "location"
    },
    "summary": "professional summary",
    "skills": ["skill1", "skill2", "skill3"],
    "experience": [
        {
            "company": "company name",
            "position": "job title",
            "duration": "time period",
            "description": "job description",
            "technologies": ["tech1", "tech2"]
        }
    ],
    "education": [
        {
            "institution": "school name",
            "degree": "degree type",
            "duration": "time period",
            "details": "additional details"
        }
    ],
    "projects": [
        {
            "name": "project name",
            "description": "project description",
            "technologies": ["tech1", "tech2"],
            "url": "project url"
        }
    ]
}

Resume text:
%s

Return only the JSON object, no other text.`, resumeText)
}

// parseProfileResponse recovers the JSON object from a provider response and
// backfills missing top-level fields so a partially-shaped object never
// escapes.
func parseProfileResponse(response string) (*models.CandidateProfile, error) {
	jsonStr := ExtractJSON(response)

	var profile models.CandidateProfile
	if err := json.Unmarshal([]byte(jsonStr), &profile); err != nil {
		return nil, fmt.Errorf("response is not valid profile JSON: %w", err)
	}

	profile.Normalize()
	return &profile, nil
}

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRegex = regexp.MustCompile(`(\+?1?[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	nameRegex  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
)

// commonSkills is the fixed vocabulary the heuristic parser matches resumes
// against, case-insensitively.
var commonSkills = []string{
	"javascript", "python", "java", "react", "node.js", "html", "css", "sql",
	"git", "docker", "aws", "mongodb", "postgresql", "typescript", "angular",
	"vue", "express", "django", "flask", "spring", "bootstrap", "tailwind",
	"firebase", "mysql", "redis", "kubernetes", "jenkins", "azure", "gcp",
}

var experienceKeywords = []string{"experience", "work history", "employment", "professional experience"}
var educationKeywords = []string{"education", "academic", "university", "college", "degree"}

// parseResumeManually is the deterministic last line of defense: it must
// always return a fully-shaped profile, whatever the input looks like.
func parseResumeManually(resumeText string) *models.CandidateProfile {
	log.Println("🔍 Using manual parsing fallback")

	lowerText := strings.ToLower(resumeText)

	var lines []string
	for _, line := range strings.Split(resumeText, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	profile := models.NewCandidateProfile()

	if match := emailRegex.FindString(resumeText); match != "" {
		profile.PersonalInfo.Email = match
	}

	if match := phoneRegex.FindString(resumeText); match != "" {
		profile.PersonalInfo.Phone = match
	}

	// Assume the first short all-alphabetic line is the candidate's name
	for _, line := range lines {
		if len(line) > 2 && len(line) < 50 && nameRegex.MatchString(line) && !strings.Contains(line, "@") {
			profile.PersonalInfo.Name = line
			break
		}
	}

	for _, skill := range commonSkills {
		if strings.Contains(lowerText, skill) {
			profile.Skills = append(profile.Skills, strings.ToUpper(skill[:1])+skill[1:])
		}
	}

	// Keyword-triggered section switching, capped per section to bound noise
	currentSection := "general"
	experienceCount := 0
	educationCount := 0

	for _, line := range lines {
		lowerLine := strings.ToLower(line)

		if containsAny(lowerLine, experienceKeywords) {
			currentSection = "experience"
			continue
		}

		if containsAny(lowerLine, educationKeywords) {
			currentSection = "education"
			continue
		}

		if currentSection == "experience" && len(line) > 10 && experienceCount < 3 {
			profile.Experience = append(profile.Experience, models.ExperienceEntry{
				Company:      line,
				Position:     "Position not specified",
				Duration:     "Duration not specified",
				Description:  "Description not available",
				Technologies: []string{},
			})
			experienceCount++
		}

		if currentSection == "education" && len(line) > 10 && educationCount < 2 {
			profile.Education = append(profile.Education, models.EducationEntry{
				Institution: line,
				Degree:      "Degree not specified",
				Duration:    "Duration not specified",
				Details:     "",
			})
			educationCount++
		}
	}

	return profile
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
