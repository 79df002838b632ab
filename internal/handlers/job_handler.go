package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"farrelnajib/ai-hiring/internal/models"
	"farrelnajib/ai-hiring/internal/repositories"
	"farrelnajib/ai-hiring/internal/services"
)

type JobHandler struct {
	jobRepo repositories.JobRepository
	index   services.CandidateIndexService
}

func NewJobHandler(jobRepo repositories.JobRepository, index services.CandidateIndexService) *JobHandler {
	return &JobHandler{
		jobRepo: jobRepo,
		index:   index,
	}
}

type createJobRequest struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
	Experience  string   `json:"experience"`
	Location    string   `json:"location"`
	Salary      string   `json:"salary"`
}

// HandleCreateJob handles POST /jobs
func (h *JobHandler) HandleCreateJob(c *fiber.Ctx) error {
	var req createJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if strings.TrimSpace(req.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title is required",
		})
	}

	job := &models.Job{
		ID:          uuid.New(),
		Title:       req.Title,
		Company:     req.Company,
		Description: req.Description,
		Skills:      req.Skills,
		Experience:  req.Experience,
		Location:    req.Location,
		Salary:      req.Salary,
	}

	if err := h.jobRepo.Create(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create job",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleListJobs handles GET /jobs
func (h *JobHandler) HandleListJobs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	jobs, err := h.jobRepo.FindAll(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list jobs",
		})
	}

	return c.JSON(fiber.Map{"jobs": jobs})
}

// HandleGetJob handles GET /jobs/:id
func (h *JobHandler) HandleGetJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job ID format",
		})
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
		})
	}

	return c.JSON(job)
}

// HandleSearchCandidates handles GET /jobs/:id/candidates. Runs a vector
// search of evaluated resumes against the job description.
func (h *JobHandler) HandleSearchCandidates(c *fiber.Ctx) error {
	if h.index == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Candidate search is not configured",
		})
	}

	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job ID format",
		})
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
		})
	}

	limit := c.QueryInt("limit", 10)
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	results, err := h.index.SearchByJobDescription(c.Context(), job.Description, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Candidate search failed",
		})
	}

	if results == nil {
		results = []models.SimilarCandidateResponse{}
	}

	return c.JSON(fiber.Map{"candidates": results})
}
