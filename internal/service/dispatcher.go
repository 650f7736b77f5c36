package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/formgate/formgate/internal/dto"
	"github.com/formgate/formgate/internal/models"
	"github.com/formgate/formgate/internal/observability"
	"github.com/formgate/formgate/internal/ratelimit"
	"github.com/formgate/formgate/internal/repository"
	"github.com/formgate/formgate/internal/spam"
)

// DispatcherConfig carries the injected runtime settings of the pipeline.
type DispatcherConfig struct {
	Method          Method
	NotifyRecipient string
	// DedupeTTL bounds the duplicate-suppression window when a cache is
	// available. Zero disables dedupe.
	DedupeTTL time.Duration
}

// DispatcherDeps groups the pipeline collaborators for construction.
type DispatcherDeps struct {
	Validator *SubmissionValidator
	Detector  *spam.Detector
	Limiter   *ratelimit.Limiter
	Strategy  Strategy
	Notifier  NotificationSink
	// Store is optional; when present the dispatcher records the notified
	// status transition after a successful sink delivery.
	Store repository.SubmissionRepository
	// Cache is optional; when present rapid duplicates are suppressed.
	Cache *redis.Client
}

// Dispatcher runs the submission pipeline: validation, spam scoring, rate
// limiting, delivery through exactly one strategy, then notification. Every
// failure path is converted into a caller-safe outcome; raw errors and stack
// traces never escape.
type Dispatcher struct {
	cfg    DispatcherConfig
	deps   DispatcherDeps
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewDispatcher constructs the submission dispatcher.
func NewDispatcher(cfg DispatcherConfig, deps DispatcherDeps, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With().Str("component", "dispatcher").Logger(),
		tracer: otel.Tracer("github.com/formgate/formgate/internal/service"),
	}
}

// Submit runs one submission through the pipeline and reports the outcome.
func (d *Dispatcher) Submit(ctx context.Context, req dto.SubmissionRequest) (outcome dto.SubmitOutcome) {
	ctx, span := d.tracer.Start(ctx, "submission.dispatch")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Msg("submission pipeline panicked")
			span.SetStatus(codes.Error, "panic")
			outcome = d.failure(dto.CodeUnknownError, "Something went wrong, please try again later")
		}
	}()

	validation := d.deps.Validator.Validate(req)
	if !validation.Valid {
		span.SetStatus(codes.Error, "validation failed")
		return d.validationFailure(validation.Fields)
	}
	req = validation.Normalized

	score := d.deps.Detector.Detect(spam.Input{
		Name:     req.Name,
		Email:    req.Email,
		Subject:  req.Subject,
		Message:  req.Message,
		Honeypot: req.Honeypot,
	})
	if score.IsSpam {
		span.SetAttributes(attribute.Int("spam.score", score.Score))
		span.SetStatus(codes.Error, "spam detected")
		// Heuristic detail stays in the logs; the caller only sees an
		// opaque rejection.
		return d.failure(dto.CodeSpamDetected, "Your submission could not be accepted")
	}

	key := req.Email
	if key == "" {
		key = req.IPAddress
	}

	state, err := d.deps.Limiter.Check(ctx, key)
	if err != nil {
		return d.internalFailure(span, err, "rate limit check failed")
	}
	if state.Limited {
		span.SetStatus(codes.Error, "rate limited")
		outcome := d.failure(dto.CodeRateLimited,
			fmt.Sprintf("Too many submissions, please try again in %s", state.RetryAfter.Round(time.Second)))
		outcome.RetryAfterMs = state.RetryAfter.Milliseconds()
		return outcome
	}
	if _, err := d.deps.Limiter.Increment(ctx, key); err != nil {
		return d.internalFailure(span, err, "rate limit increment failed")
	}

	checksum := computeChecksum(req.Name, req.Email, req.Message)
	span.SetAttributes(attribute.String("submission.checksum", checksum))

	if d.deps.Cache != nil && d.cfg.DedupeTTL > 0 {
		ok, err := d.deps.Cache.SetNX(ctx, "submission:dedupe:"+checksum, 1, d.cfg.DedupeTTL).Result()
		if err != nil {
			// Dedupe is best effort; a cache outage must not block submissions.
			d.logger.Warn().Err(err).Msg("dedupe cache unavailable")
		} else if !ok {
			span.SetStatus(codes.Error, "duplicate submission")
			return d.failure(dto.CodeDuplicateSubmission, "This submission was already received")
		}
	}

	record := d.buildRecord(req, checksum)
	span.SetAttributes(attribute.String("submission.reference_id", record.ReferenceID))

	id, err := d.deps.Strategy.Deliver(ctx, &record)
	if err != nil {
		return d.deliveryFailure(span, record.ReferenceID, err)
	}

	d.notify(ctx, record)

	observability.Submissions().WithLabelValues("accepted").Inc()
	span.SetStatus(codes.Ok, "delivered")
	d.logger.Info().
		Str("reference_id", record.ReferenceID).
		Str("email", maskEmailAddress(record.Email)).
		Str("method", string(d.cfg.Method)).
		Msg("submission processed")

	return dto.SubmitOutcome{Success: true, ID: id, Message: "Form submitted successfully"}
}

// notify sends the sink notification. Failures are logged only: the
// submission is already durable, so the overall result stays successful.
func (d *Dispatcher) notify(ctx context.Context, record models.ContactSubmission) {
	if d.deps.Notifier == nil || d.cfg.NotifyRecipient == "" {
		return
	}

	notification := NewSubmissionNotification(d.cfg.NotifyRecipient, record)
	if err := d.deps.Notifier.Send(ctx, notification); err != nil {
		d.logger.Warn().Err(err).Str("reference_id", record.ReferenceID).Msg("submission notification failed")
		return
	}

	if d.deps.Store != nil && record.ID != 0 {
		if err := d.deps.Store.UpdateStatus(ctx, record.ID, models.SubmissionStatusNotified); err != nil {
			d.logger.Warn().Err(err).Str("reference_id", record.ReferenceID).Msg("status transition failed")
		}
	}
}

func (d *Dispatcher) buildRecord(req dto.SubmissionRequest, checksum string) models.ContactSubmission {
	submittedAt := time.Now().UTC()
	if req.Timestamp != nil {
		submittedAt = req.Timestamp.UTC()
	}

	var metadata datatypes.JSONMap
	if len(req.Metadata) > 0 {
		metadata = datatypes.JSONMap(req.Metadata)
	}

	return models.ContactSubmission{
		ReferenceID: uuid.New().String(),
		Name:        req.Name,
		Email:       req.Email,
		Subject:     req.Subject,
		Message:     req.Message,
		Source:      req.Source,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		Status:      models.SubmissionStatusReceived,
		Checksum:    checksum,
		Metadata:    metadata,
		SubmittedAt: submittedAt,
	}
}

func (d *Dispatcher) validationFailure(fields map[string]string) dto.SubmitOutcome {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	messages := make([]string, 0, len(keys))
	for _, key := range keys {
		messages = append(messages, fields[key])
	}

	observability.Submissions().WithLabelValues(dto.CodeValidationError).Inc()
	return dto.SubmitOutcome{
		Success: false,
		Code:    dto.CodeValidationError,
		Message: strings.Join(messages, "; "),
		Fields:  fields,
	}
}

func (d *Dispatcher) deliveryFailure(span trace.Span, referenceID string, err error) dto.SubmitOutcome {
	span.RecordError(err)
	d.logger.Error().Err(err).Str("reference_id", referenceID).Msg("submission delivery failed")

	switch {
	case errors.Is(err, ErrDeliveryTimeout):
		span.SetStatus(codes.Error, "delivery timeout")
		return d.failure(dto.CodeTimeoutError, "The submission timed out, please try again")
	case errors.Is(err, ErrRemoteDelivery):
		span.SetStatus(codes.Error, "remote delivery failed")
		return d.failure(dto.CodeNetworkError, "The submission could not be delivered, please try again later")
	case errors.Is(err, ErrPersistence):
		span.SetStatus(codes.Error, "persistence failed")
		return d.failure(dto.CodePersistenceError, "The submission could not be stored, please try again later")
	default:
		span.SetStatus(codes.Error, "delivery failed")
		return d.failure(dto.CodeUnknownError, "Something went wrong, please try again later")
	}
}

func (d *Dispatcher) internalFailure(span trace.Span, err error, reason string) dto.SubmitOutcome {
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	d.logger.Error().Err(err).Msg(reason)
	return d.failure(dto.CodeUnknownError, "Something went wrong, please try again later")
}

func (d *Dispatcher) failure(code, message string) dto.SubmitOutcome {
	observability.Submissions().WithLabelValues(code).Inc()
	return dto.SubmitOutcome{Success: false, Code: code, Message: message}
}

func computeChecksum(parts ...string) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(strings.TrimSpace(strings.ToLower(part))))
		hasher.Write([]byte("|"))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
