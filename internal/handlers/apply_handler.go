package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"farrelnajib/ai-hiring/internal/models"
	"farrelnajib/ai-hiring/internal/repositories"
	"farrelnajib/ai-hiring/internal/services"
)

type ApplyHandler struct {
	appRepo        repositories.ApplicationRepository
	jobRepo        repositories.JobRepository
	storageService services.StorageService
	worker         services.Worker
}

func NewApplyHandler(
	appRepo repositories.ApplicationRepository,
	jobRepo repositories.JobRepository,
	storageService services.StorageService,
	worker services.Worker,
) *ApplyHandler {
	return &ApplyHandler{
		appRepo:        appRepo,
		jobRepo:        jobRepo,
		storageService: storageService,
		worker:         worker,
	}
}

// HandleApply handles POST /jobs/:id/apply. Accepts a multipart form with
// the resume PDF plus candidate name and email. The application is queued
// and evaluated asynchronously.
func (h *ApplyHandler) HandleApply(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job ID format",
		})
	}

	if _, err := h.jobRepo.FindByID(jobID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
		})
	}

	candidateName := strings.TrimSpace(c.FormValue("candidate_name"))
	candidateEmail := strings.TrimSpace(c.FormValue("candidate_email"))

	if candidateName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "candidate_name is required",
		})
	}

	if candidateEmail == "" || !strings.Contains(candidateEmail, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A valid candidate_email is required",
		})
	}

	exists, err := h.appRepo.ExistsForJob(jobID, candidateEmail)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check existing applications",
		})
	}
	if exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "You have already applied for this job",
		})
	}

	file, err := c.FormFile("resume")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resume file is required",
		})
	}

	filename, filePath, err := h.storageService.SaveResume(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	application := &models.Application{
		ID:             uuid.New(),
		JobID:          jobID,
		CandidateName:  candidateName,
		CandidateEmail: candidateEmail,
		ResumeFileName: filename,
		ResumePath:     filePath,
		Status:         models.StatusQueued,
	}

	if err := h.appRepo.Create(application); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create application",
		})
	}

	h.worker.EnqueueApplication(application.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.ApplyResponse{
		ID:     application.ID.String(),
		Status: string(models.StatusQueued),
	})
}
