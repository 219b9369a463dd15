package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ataljudge/judge-api/internal/dto"
	"github.com/ataljudge/judge-api/internal/middleware"
	"github.com/ataljudge/judge-api/internal/service"
	"github.com/ataljudge/judge-api/internal/utils"
)

// GradeHandler manages grade endpoints.
type GradeHandler struct {
	service service.GradeService
	logger  zerolog.Logger
}

// NewGradeHandler builds a grade handler instance.
func NewGradeHandler(service service.GradeService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Post("/recompute", middleware.RequireRole("teacher", "admin"), h.recompute)
	router.Get("/:listID/students/:studentID", h.get)
}

func (h *GradeHandler) recompute(c *fiber.Ctx) error {
	var payload dto.GradeRecomputeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	grade, err := h.service.Recompute(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade recomputed", grade)
}

func (h *GradeHandler) get(c *fiber.Ctx) error {
	studentID := c.Params("studentID")
	listID := c.Params("listID")

	// Students can only read their own grade.
	role := userRoleFromContext(c)
	if role != "teacher" && role != "admin" && studentID != userIDFromContext(c) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	grade, err := h.service.Get(c.Context(), studentID, listID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade retrieved", grade)
}

func (h *GradeHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrQuestionListNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question list not found")
	case errors.Is(err, service.ErrGradeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "grade not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
