package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/formgate/formgate/internal/handler"
	"github.com/formgate/formgate/internal/logging"
	"github.com/formgate/formgate/internal/ratelimit"
)

func newDiagnosticsApp(t *testing.T) (*fiber.App, *logging.Buffer, *ratelimit.Limiter) {
	t.Helper()

	buffer := logging.NewBuffer(10)
	limiter := ratelimit.New(ratelimit.Config{Window: time.Hour, MaxRequests: 2},
		ratelimit.NewMemoryStore(), zerolog.Nop())

	app := fiber.New()
	h := handler.NewDiagnosticsHandler(buffer, limiter, zerolog.Nop())
	h.Register(app.Group("/api/admin"))
	return app, buffer, limiter
}

func TestLogsEndpointReturnsBufferedEntries(t *testing.T) {
	app, buffer, _ := newDiagnosticsApp(t)

	logger, _ := logging.New("info", 0)
	logger = logger.Output(buffer)
	logger.Info().Msg("first line")
	logger.Warn().Msg("second line")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/logs", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data struct {
			Count   int      `json:"count"`
			Entries []string `json:"entries"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, 2, payload.Data.Count)
	require.Contains(t, payload.Data.Entries[0], "first line")
	require.Contains(t, payload.Data.Entries[1], "second line")
}

func TestResetSingleRateLimitKey(t *testing.T) {
	app, _, limiter := newDiagnosticsApp(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Increment(ctx, "ada@example.com")
		require.NoError(t, err)
	}
	state, err := limiter.Check(ctx, "ada@example.com")
	require.NoError(t, err)
	require.True(t, state.Limited)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/admin/rate-limits/ada@example.com", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	state, err = limiter.Check(ctx, "ada@example.com")
	require.NoError(t, err)
	require.False(t, state.Limited)
	require.Equal(t, 2, state.Remaining)
}

func TestResetAllRateLimits(t *testing.T) {
	app, _, limiter := newDiagnosticsApp(t)
	ctx := context.Background()

	for _, key := range []string{"a@example.com", "b@example.com"} {
		_, err := limiter.Increment(ctx, key)
		require.NoError(t, err)
		_, err = limiter.Increment(ctx, key)
		require.NoError(t, err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/admin/rate-limits/reset", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	for _, key := range []string{"a@example.com", "b@example.com"} {
		state, err := limiter.Check(ctx, key)
		require.NoError(t, err)
		require.False(t, state.Limited)
	}
}
