package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/formgate/formgate/internal/logging"
	"github.com/formgate/formgate/internal/ratelimit"
	"github.com/formgate/formgate/internal/utils"
)

// DiagnosticsHandler exposes operational endpoints: the recent log ring and
// rate limiter resets.
type DiagnosticsHandler struct {
	buffer  *logging.Buffer
	limiter *ratelimit.Limiter
	logger  zerolog.Logger
}

// NewDiagnosticsHandler constructs the diagnostics handler.
func NewDiagnosticsHandler(buffer *logging.Buffer, limiter *ratelimit.Limiter, logger zerolog.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		buffer:  buffer,
		limiter: limiter,
		logger:  logger.With().Str("component", "diagnostics_handler").Logger(),
	}
}

// Register wires the diagnostics routes.
func (h *DiagnosticsHandler) Register(router fiber.Router) {
	router.Get("/logs", h.logs)
	router.Delete("/rate-limits/:key", h.resetKey)
	router.Post("/rate-limits/reset", h.resetAll)
}

func (h *DiagnosticsHandler) logs(c *fiber.Ctx) error {
	entries := h.buffer.Entries()
	return utils.SendSuccess(c, "log entries retrieved", fiber.Map{
		"count":   len(entries),
		"entries": entries,
	})
}

func (h *DiagnosticsHandler) resetKey(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := h.limiter.Reset(c.UserContext(), key); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("key", key).Msg("failed to reset rate limit")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to reset rate limit")
	}
	return utils.SendSuccess(c, "rate limit reset", nil)
}

func (h *DiagnosticsHandler) resetAll(c *fiber.Ctx) error {
	if err := h.limiter.ResetAll(c.UserContext()); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to reset rate limits")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to reset rate limits")
	}
	return utils.SendSuccess(c, "rate limits reset", nil)
}
