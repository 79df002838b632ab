package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"farrelnajib/ai-hiring/internal/models"
	"farrelnajib/ai-hiring/internal/services"
)

type InterviewHandler struct {
	interviews services.InterviewService
}

func NewInterviewHandler(interviews services.InterviewService) *InterviewHandler {
	return &InterviewHandler{
		interviews: interviews,
	}
}

type startInterviewRequest struct {
	MediaGranted bool `json:"media_granted"`
}

// HandleStart handles POST /applications/:id/interview. Builds the session,
// generates questions and begins the question loop.
func (h *InterviewHandler) HandleStart(c *fiber.Ctx) error {
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidApplicationID(c)
	}

	var req startInterviewRequest
	if err := c.BodyParser(&req); err != nil {
		// An empty body means the client never asked for media
		req.MediaGranted = false
	}

	status, err := h.interviews.StartInterview(appID, req.MediaGranted)
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(status)
}

// HandleTranscriptEvent handles POST /applications/:id/interview/transcript.
// The client streams partial and final speech-to-text results here.
func (h *InterviewHandler) HandleTranscriptEvent(c *fiber.Ctx) error {
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidApplicationID(c)
	}

	var req models.TranscriptEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if err := h.interviews.PushTranscript(appID, services.TranscriptEvent{
		Text:  req.Text,
		Final: req.Final,
	}); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleNextAudio handles GET /applications/:id/interview/audio. Returns the
// synthesized question clip awaiting playback, or 204 when there is none.
func (h *InterviewHandler) HandleNextAudio(c *fiber.Ctx) error {
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidApplicationID(c)
	}

	audio, err := h.interviews.NextAudio(appID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if len(audio) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	return c.Send(audio)
}

// HandlePlaybackDone handles POST /applications/:id/interview/playback-done.
// The client reports the question clip finished playing, which moves the
// session from speaking to recording.
func (h *InterviewHandler) HandlePlaybackDone(c *fiber.Ctx) error {
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidApplicationID(c)
	}

	if err := h.interviews.PlaybackDone(appID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleEnd handles POST /applications/:id/interview/end. Terminates the
// session and returns the final status. Ending an already-terminal session
// returns its status unchanged.
func (h *InterviewHandler) HandleEnd(c *fiber.Ctx) error {
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidApplicationID(c)
	}

	status, err := h.interviews.EndInterview(appID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(status)
}

// HandleStatus handles GET /applications/:id/interview
func (h *InterviewHandler) HandleStatus(c *fiber.Ctx) error {
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidApplicationID(c)
	}

	status, err := h.interviews.Status(appID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(status)
}

func invalidApplicationID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid application ID format",
	})
}
