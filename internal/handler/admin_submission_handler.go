package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/formgate/formgate/internal/dto"
	"github.com/formgate/formgate/internal/service"
	"github.com/formgate/formgate/internal/utils"
)

// AdminSubmissionHandler exposes the admin read side over stored submissions.
type AdminSubmissionHandler struct {
	service  service.AdminSubmissionService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAdminSubmissionHandler constructs the admin submission handler.
func NewAdminSubmissionHandler(svc service.AdminSubmissionService, validate *validator.Validate, logger zerolog.Logger) *AdminSubmissionHandler {
	return &AdminSubmissionHandler{
		service:  svc,
		validate: validate,
		logger:   logger.With().Str("component", "admin_submission_handler").Logger(),
	}
}

// Register wires the admin submission routes.
func (h *AdminSubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:reference_id", h.get)
}

func (h *AdminSubmissionHandler) list(c *fiber.Ctx) error {
	var query dto.AdminSubmissionListRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := h.validate.Struct(query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.service.List(c.UserContext(), query)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list submissions")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", response)
}

func (h *AdminSubmissionHandler) get(c *fiber.Ctx) error {
	referenceID := c.Params("reference_id")

	response, err := h.service.Get(c.UserContext(), referenceID)
	if errors.Is(err, service.ErrSubmissionNotFound) {
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	}
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("reference_id", referenceID).Msg("failed to load submission")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load submission")
	}

	return utils.SendSuccess(c, "submission retrieved", response)
}
