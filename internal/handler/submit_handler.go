package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/formgate/formgate/internal/dto"
)

// SubmissionDispatcher runs the contact submission pipeline.
type SubmissionDispatcher interface {
	Submit(ctx context.Context, req dto.SubmissionRequest) dto.SubmitOutcome
}

// SubmitHandler handles public contact form submissions.
type SubmitHandler struct {
	dispatcher SubmissionDispatcher
	// honeypotField is the wire name of the trap field. It is configurable,
	// so the handler pulls it from the raw payload rather than relying on
	// the DTO's fixed tag.
	honeypotField string
	logger        zerolog.Logger
}

// NewSubmitHandler constructs the submit handler.
func NewSubmitHandler(dispatcher SubmissionDispatcher, honeypotField string, logger zerolog.Logger) *SubmitHandler {
	return &SubmitHandler{
		dispatcher:    dispatcher,
		honeypotField: honeypotField,
		logger:        logger.With().Str("component", "submit_handler").Logger(),
	}
}

// Register wires the contact routes.
func (h *SubmitHandler) Register(router fiber.Router) {
	router.Post("", h.submit)
}

func (h *SubmitHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("malformed submission payload")
		return c.Status(fiber.StatusBadRequest).JSON(dto.SubmitOutcome{
			Success: false,
			Code:    dto.CodeValidationError,
			Message: "Request payload could not be parsed",
		})
	}

	payload.IPAddress = c.IP()
	if payload.UserAgent == "" {
		payload.UserAgent = c.Get(fiber.HeaderUserAgent)
	}
	if h.honeypotField != "" && payload.Honeypot == "" {
		payload.Honeypot = rawField(c.Body(), h.honeypotField)
	}

	outcome := h.dispatcher.Submit(c.UserContext(), payload)
	if outcome.RetryAfterMs > 0 {
		retryAfter := time.Duration(outcome.RetryAfterMs) * time.Millisecond
		c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(retryAfter.Round(time.Second).Seconds())))
	}

	return c.Status(statusForOutcome(outcome)).JSON(outcome)
}

// rawField extracts one top-level string field from a JSON payload. Missing
// fields and non-string values read as empty.
func rawField(body []byte, field string) string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw[field], &value); err != nil {
		return ""
	}
	return value
}

func statusForOutcome(outcome dto.SubmitOutcome) int {
	if outcome.Success {
		return fiber.StatusOK
	}
	switch outcome.Code {
	case dto.CodeValidationError, dto.CodeSpamDetected:
		return fiber.StatusBadRequest
	case dto.CodeRateLimited, dto.CodeDuplicateSubmission:
		return fiber.StatusTooManyRequests
	case dto.CodeTimeoutError:
		return fiber.StatusGatewayTimeout
	case dto.CodeNetworkError, dto.CodePersistenceError:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
