package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"farrelnajib/ai-hiring/internal/models"
	"farrelnajib/ai-hiring/internal/repositories"
)

type ResultHandler struct {
	appRepo repositories.ApplicationRepository
}

func NewResultHandler(appRepo repositories.ApplicationRepository) *ResultHandler {
	return &ResultHandler{
		appRepo: appRepo,
	}
}

// HandleGetResult handles GET /applications/:id
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid application ID format",
		})
	}

	application, err := h.appRepo.FindByID(appID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Application not found",
		})
	}

	response := models.ResultResponse{
		ID:     application.ID.String(),
		Status: string(application.Status),
	}

	if application.Status == models.StatusCompleted {
		result := &models.EvaluationData{
			InterviewEligible: application.InterviewEligible,
			ExtractedData:     application.ExtractedData,
			Analysis:          application.Analysis,
		}
		if application.ResumeQualityScore != nil {
			result.ResumeQualityScore = *application.ResumeQualityScore
		}
		if application.JobMatchScore != nil {
			result.JobMatchScore = *application.JobMatchScore
		}
		response.Result = result
	}

	if application.Status == models.StatusFailed {
		response.ErrorMessage = application.ErrorMessage
	}

	return c.JSON(response)
}
