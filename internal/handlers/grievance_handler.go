package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/automax/grievance-backend/internal/middleware"
	"github.com/automax/grievance-backend/internal/models"
	"github.com/automax/grievance-backend/internal/services"
	"github.com/automax/grievance-backend/pkg/utils"
)

type GrievanceHandler struct {
	service   services.GrievanceService
	validator *validator.Validate
}

func NewGrievanceHandler(service services.GrievanceService) *GrievanceHandler {
	return &GrievanceHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Classify registers a grievance and returns its classification.
func (h *GrievanceHandler) Classify(c *fiber.Ctx) error {
	var req models.ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponseWithHint(c, fiber.StatusBadRequest, "Invalid request body", `Send JSON like {"text": "..."}`)
	}
	if err := h.validator.Struct(&req); err != nil {
		return utils.ErrorResponseWithHint(c, fiber.StatusBadRequest, "Invalid request", "text is required and location_ward is at most 100 characters")
	}

	resp, err := h.service.Submit(c.Context(), &req, middleware.Subject(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListGrievances returns the most recent grievances, newest first.
func (h *GrievanceHandler) ListGrievances(c *fiber.Ctx) error {
	filter := &models.GrievanceFilter{
		Status:     c.Query("status"),
		Department: c.Query("department"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return utils.ErrorResponseWithHint(c, fiber.StatusBadRequest, "Invalid request", "limit must be a number between 1 and 100")
		}
		filter.Limit = limit
	}

	grievances, err := h.service.List(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(grievances)
}

func (h *GrievanceHandler) GetGrievance(c *fiber.Ctx) error {
	grievance, err := h.service.Get(c.Context(), c.Params("token_id"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Grievance retrieved", grievance)
}

func (h *GrievanceHandler) UpdateStatus(c *fiber.Ctx) error {
	var req models.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponseWithHint(c, fiber.StatusBadRequest, "Invalid request body", `Send JSON like {"status": "In Progress"}`)
	}
	if err := h.validator.Struct(&req); err != nil {
		return utils.ErrorResponseWithHint(c, fiber.StatusBadRequest, "Invalid request", "status is required")
	}

	grievance, err := h.service.UpdateStatus(c.Context(), c.Params("token_id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Status updated", grievance)
}

func (h *GrievanceHandler) GetHistory(c *fiber.Ctx) error {
	history, err := h.service.History(c.Context(), c.Params("token_id"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "History retrieved", history)
}

func (h *GrievanceHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Stats retrieved", stats)
}

// Attachments

func (h *GrievanceHandler) AddAttachment(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponseWithHint(c, fiber.StatusBadRequest, "No file uploaded", "Send a multipart form with a 'file' field")
	}

	src, err := file.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read file")
	}
	defer src.Close()

	attachment, err := h.service.AddAttachment(c.Context(), c.Params("token_id"), &services.AttachmentUpload{
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        src,
	}, middleware.Subject(c))
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, "Attachment uploaded", attachment)
}

func (h *GrievanceHandler) ListAttachments(c *fiber.Ctx) error {
	attachments, err := h.service.ListAttachments(c.Context(), c.Params("token_id"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Attachments retrieved", attachments)
}
