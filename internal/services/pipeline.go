package services

import (
	"context"
	"fmt"
	"log"

	"farrelnajib/ai-hiring/internal/models"
)

// EvaluationResult is the immutable outcome of evaluating one resume against
// one job. Score computation is deterministic given a fixed profile; only the
// extraction step varies across provider attempts.
type EvaluationResult struct {
	ResumeText         string
	Profile            *models.CandidateProfile
	ResumeQualityScore int
	JobMatchScore      int
	Analysis           *models.Analysis
}

// PipelineService composes text extraction, structured extraction, scoring
// and local analysis into a single evaluation. Errors carry a stage tag so
// callers can tell document problems from provider problems. No retries
// happen here; retrying is the provider chain's job.
type PipelineService interface {
	Evaluate(ctx context.Context, document []byte, job *models.Job) (*EvaluationResult, error)
	EvaluateFile(ctx context.Context, filePath string, job *models.Job) (*EvaluationResult, error)
}

type pipelineService struct {
	pdfParser PDFParserService
	extractor ResumeExtractorService
}

func NewPipelineService(pdfParser PDFParserService, extractor ResumeExtractorService) PipelineService {
	return &pipelineService{
		pdfParser: pdfParser,
		extractor: extractor,
	}
}

func (p *pipelineService) Evaluate(ctx context.Context, document []byte, job *models.Job) (*EvaluationResult, error) {
	resumeText, err := p.pdfParser.ExtractFromBytes(document)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	return p.evaluateText(ctx, resumeText, job)
}

func (p *pipelineService) EvaluateFile(ctx context.Context, filePath string, job *models.Job) (*EvaluationResult, error) {
	resumeText, err := p.pdfParser.ExtractText(filePath)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	return p.evaluateText(ctx, resumeText, job)
}

func (p *pipelineService) evaluateText(ctx context.Context, resumeText string, job *models.Job) (*EvaluationResult, error) {
	log.Println("📄 Extracting structured data from resume...")
	profile, err := p.extractor.ExtractProfile(ctx, resumeText)
	if err != nil {
		return nil, fmt.Errorf("structured extraction failed: %w", err)
	}

	log.Println("🧮 Calculating scores...")
	qualityScore := ResumeQualityScore(profile)
	matchScore := JobMatchScore(profile, job)

	analysis := GenerateAnalysis(profile, job, matchScore)

	return &EvaluationResult{
		ResumeText:         resumeText,
		Profile:            profile,
		ResumeQualityScore: qualityScore,
		JobMatchScore:      matchScore,
		Analysis:           analysis,
	}, nil
}
