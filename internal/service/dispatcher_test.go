package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/formgate/formgate/internal/dto"
	"github.com/formgate/formgate/internal/models"
	"github.com/formgate/formgate/internal/ratelimit"
	"github.com/formgate/formgate/internal/repository"
	"github.com/formgate/formgate/internal/service"
	"github.com/formgate/formgate/internal/spam"
)

type stubStrategy struct {
	calls    int
	id       string
	err      error
	assignID uint
}

func (s *stubStrategy) Deliver(_ context.Context, submission *models.ContactSubmission) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if s.assignID != 0 {
		submission.ID = s.assignID
	}
	return s.id, nil
}

type panicStrategy struct{}

func (panicStrategy) Deliver(context.Context, *models.ContactSubmission) (string, error) {
	panic("strategy exploded")
}

type capturingSink struct {
	sent []service.Notification
	err  error
}

func (c *capturingSink) Send(_ context.Context, notification service.Notification) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, notification)
	return nil
}

type statusRecorder struct {
	updates map[uint]string
}

func (r *statusRecorder) Create(context.Context, *models.ContactSubmission) error { return nil }

func (r *statusRecorder) UpdateStatus(_ context.Context, id uint, status string) error {
	if r.updates == nil {
		r.updates = map[uint]string{}
	}
	r.updates[id] = status
	return nil
}

func (r *statusRecorder) GetByReference(context.Context, string) (models.ContactSubmission, error) {
	return models.ContactSubmission{}, errors.New("not implemented")
}

func (r *statusRecorder) List(context.Context, repository.SubmissionFilter) ([]models.ContactSubmission, int64, error) {
	return nil, 0, errors.New("not implemented")
}

type pipeline struct {
	dispatcher *service.Dispatcher
	strategy   *stubStrategy
	sink       *capturingSink
	store      *statusRecorder
}

type pipelineOption func(*service.DispatcherConfig, *service.DispatcherDeps)

func withMaxRequests(t *testing.T, max int) pipelineOption {
	t.Helper()
	return func(_ *service.DispatcherConfig, deps *service.DispatcherDeps) {
		deps.Limiter = ratelimit.New(ratelimit.Config{Window: time.Hour, MaxRequests: max},
			ratelimit.NewMemoryStore(), zerolog.Nop())
	}
}

func withDedupe(t *testing.T, ttl time.Duration) pipelineOption {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return func(cfg *service.DispatcherConfig, deps *service.DispatcherDeps) {
		cfg.DedupeTTL = ttl
		deps.Cache = client
	}
}

func newPipeline(t *testing.T, opts ...pipelineOption) pipeline {
	t.Helper()

	detector, err := spam.NewDetector(spam.DefaultOptions(), zerolog.Nop())
	require.NoError(t, err)

	strategy := &stubStrategy{id: "rec_123"}
	sink := &capturingSink{}
	store := &statusRecorder{}

	cfg := service.DispatcherConfig{
		Method:          service.MethodStore,
		NotifyRecipient: "ops@example.com",
	}
	deps := service.DispatcherDeps{
		Validator: service.NewSubmissionValidator(validator.New(validator.WithRequiredStructEnabled())),
		Detector:  detector,
		Limiter: ratelimit.New(ratelimit.Config{Window: time.Hour, MaxRequests: 100},
			ratelimit.NewMemoryStore(), zerolog.Nop()),
		Strategy: strategy,
		Notifier: sink,
		Store:    store,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	return pipeline{
		dispatcher: service.NewDispatcher(cfg, deps, zerolog.Nop()),
		strategy:   strategy,
		sink:       sink,
		store:      store,
	}
}

func validRequest() dto.SubmissionRequest {
	return dto.SubmissionRequest{
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Subject:   "Engine question",
		Message:   "I would like to ask about the analytical engine.",
		IPAddress: "192.0.2.10",
	}
}

func TestSubmitSuccess(t *testing.T) {
	p := newPipeline(t)
	p.strategy.assignID = 42

	outcome := p.dispatcher.Submit(context.Background(), validRequest())

	require.True(t, outcome.Success)
	require.Equal(t, "rec_123", outcome.ID)
	require.Equal(t, "Form submitted successfully", outcome.Message)
	require.Equal(t, 1, p.strategy.calls)

	require.Len(t, p.sink.sent, 1)
	require.Equal(t, "ops@example.com", p.sink.sent[0].To)
	require.Contains(t, p.sink.sent[0].Subject, "Engine question")

	require.Equal(t, models.SubmissionStatusNotified, p.store.updates[42])
}

func TestSubmitValidationFailureReportsEveryField(t *testing.T) {
	p := newPipeline(t)

	outcome := p.dispatcher.Submit(context.Background(), dto.SubmissionRequest{
		Name:  "A",
		Email: "nope",
	})

	require.False(t, outcome.Success)
	require.Equal(t, dto.CodeValidationError, outcome.Code)
	require.Len(t, outcome.Fields, 3)
	require.Zero(t, p.strategy.calls)
}

func TestSubmitRejectsSpamBeforeDelivery(t *testing.T) {
	p := newPipeline(t)

	req := validRequest()
	req.Message = "Buy viagra and cialis at our fine casino today"

	outcome := p.dispatcher.Submit(context.Background(), req)

	require.False(t, outcome.Success)
	require.Equal(t, dto.CodeSpamDetected, outcome.Code)
	require.Equal(t, "Your submission could not be accepted", outcome.Message)
	require.Zero(t, p.strategy.calls, "spam must never reach the delivery strategy")
}

func TestSubmitRateLimitedAfterQuota(t *testing.T) {
	p := newPipeline(t, withMaxRequests(t, 1))

	first := p.dispatcher.Submit(context.Background(), validRequest())
	require.True(t, first.Success)

	second := validRequest()
	second.Message = "A different follow-up question about the engine."
	outcome := p.dispatcher.Submit(context.Background(), second)

	require.False(t, outcome.Success)
	require.Equal(t, dto.CodeRateLimited, outcome.Code)
	require.Greater(t, outcome.RetryAfterMs, int64(0))
	require.Contains(t, outcome.Message, "Too many submissions")
	require.Equal(t, 1, p.strategy.calls)
}

func TestSubmitClassifiesDeliveryFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"timeout", fmt.Errorf("strategy: %w", service.ErrDeliveryTimeout), dto.CodeTimeoutError},
		{"remote", service.ErrRemoteDelivery, dto.CodeNetworkError},
		{"persistence", service.ErrPersistence, dto.CodePersistenceError},
		{"unclassified", errors.New("boom"), dto.CodeUnknownError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPipeline(t)
			p.strategy.err = tc.err

			outcome := p.dispatcher.Submit(context.Background(), validRequest())

			require.False(t, outcome.Success)
			require.Equal(t, tc.code, outcome.Code)
			require.NotContains(t, outcome.Message, tc.err.Error(), "raw errors must not leak to callers")
		})
	}
}

func TestSubmitSuppressesRapidDuplicates(t *testing.T) {
	p := newPipeline(t, withDedupe(t, time.Minute))

	first := p.dispatcher.Submit(context.Background(), validRequest())
	require.True(t, first.Success)

	outcome := p.dispatcher.Submit(context.Background(), validRequest())

	require.False(t, outcome.Success)
	require.Equal(t, dto.CodeDuplicateSubmission, outcome.Code)
	require.Equal(t, 1, p.strategy.calls)
}

func TestSubmitNotificationFailureIsNonFatal(t *testing.T) {
	p := newPipeline(t)
	p.strategy.assignID = 42
	p.sink.err = errors.New("sink down")

	outcome := p.dispatcher.Submit(context.Background(), validRequest())

	require.True(t, outcome.Success)
	require.Empty(t, p.store.updates, "status must not advance when the notification fails")
}

func TestSubmitRecoversFromPanic(t *testing.T) {
	p := newPipeline(t)

	dispatcher := service.NewDispatcher(
		service.DispatcherConfig{Method: service.MethodStore},
		service.DispatcherDeps{
			Validator: service.NewSubmissionValidator(validator.New(validator.WithRequiredStructEnabled())),
			Detector:  mustDetector(t),
			Limiter: ratelimit.New(ratelimit.Config{Window: time.Hour, MaxRequests: 100},
				ratelimit.NewMemoryStore(), zerolog.Nop()),
			Strategy: panicStrategy{},
			Notifier: p.sink,
		},
		zerolog.Nop(),
	)

	outcome := dispatcher.Submit(context.Background(), validRequest())

	require.False(t, outcome.Success)
	require.Equal(t, dto.CodeUnknownError, outcome.Code)
	require.NotContains(t, outcome.Message, "strategy exploded")
}

func mustDetector(t *testing.T) *spam.Detector {
	t.Helper()
	detector, err := spam.NewDetector(spam.DefaultOptions(), zerolog.Nop())
	require.NoError(t, err)
	return detector
}
