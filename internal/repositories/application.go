package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"farrelnajib/ai-hiring/internal/models"
)

type ApplicationRepository interface {
	Create(app *models.Application) error
	FindByID(id uuid.UUID) (*models.Application, error)
	ExistsForJob(jobID uuid.UUID, candidateEmail string) (bool, error)
	UpdateStatus(id uuid.UUID, status models.ApplicationStatus) error
	UpdateEvaluation(id uuid.UUID, data *EvaluationUpdateData) error
	UpdateError(id uuid.UUID, errorMsg string) error
	SaveInterviewResult(id uuid.UUID, score int, data *models.InterviewData) error
	FindPendingApplications(limit int) ([]models.Application, error)
}

// EvaluationUpdateData carries the pipeline output written back to an
// application exactly once, on completion.
type EvaluationUpdateData struct {
	ResumeText         string
	Profile            *models.CandidateProfile
	ResumeQualityScore int
	JobMatchScore      int
	Analysis           *models.Analysis
	InterviewEligible  bool
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(app *models.Application) error {
	if err := r.db.Create(app).Error; err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (r *applicationRepository) FindByID(id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := r.db.Where("id = ?", id).First(&app).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("application not found")
		}
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return &app, nil
}

func (r *applicationRepository) ExistsForJob(jobID uuid.UUID, candidateEmail string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Application{}).
		Where("job_id = ? AND candidate_email = ?", jobID, candidateEmail).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing application: %w", err)
	}
	return count > 0, nil
}

func (r *applicationRepository) UpdateStatus(id uuid.UUID, status models.ApplicationStatus) error {
	result := r.db.Model(&models.Application{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("application not found")
	}

	return nil
}

func (r *applicationRepository) UpdateEvaluation(id uuid.UUID, data *EvaluationUpdateData) error {
	updates := map[string]interface{}{
		"status":               models.StatusCompleted,
		"resume_text":          data.ResumeText,
		"resume_quality_score": data.ResumeQualityScore,
		"job_match_score":      data.JobMatchScore,
		"interview_eligible":   data.InterviewEligible,
		"updated_at":           time.Now(),
	}

	if data.Profile != nil {
		updates["extracted_data"] = *data.Profile
	}
	if data.Analysis != nil {
		updates["analysis"] = *data.Analysis
	}

	result := r.db.Model(&models.Application{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update evaluation: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("application not found")
	}

	return nil
}

func (r *applicationRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	result := r.db.Model(&models.Application{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update error: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("application not found")
	}

	return nil
}

// SaveInterviewResult writes the final score and transcript. The status guard
// keeps the write-back single-shot even if two terminations race.
func (r *applicationRepository) SaveInterviewResult(id uuid.UUID, score int, data *models.InterviewData) error {
	result := r.db.Model(&models.Application{}).
		Where("id = ? AND interview_status = ?", id, models.InterviewNotStarted).
		Updates(map[string]interface{}{
			"interview_status": models.InterviewCompleted,
			"interview_score":  score,
			"interview_data":   *data,
			"updated_at":       time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to save interview result: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("interview result already recorded")
	}

	return nil
}

func (r *applicationRepository) FindPendingApplications(limit int) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&apps).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending applications: %w", err)
	}

	return apps, nil
}
