package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/formgate/formgate/internal/models"
)

// remoteTimeout is the hard deadline for one remote delivery attempt. No
// retries happen at this layer; that is the caller's call.
const remoteTimeout = 10 * time.Second

// APIStrategy forwards submissions to a remote collection endpoint as JSON.
type APIStrategy struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewAPIStrategy constructs the remote delivery strategy.
func NewAPIStrategy(endpoint string, logger zerolog.Logger) *APIStrategy {
	return &APIStrategy{
		endpoint: endpoint,
		client:   &http.Client{},
		timeout:  remoteTimeout,
		logger:   logger.With().Str("component", "api_strategy").Logger(),
	}
}

type remoteResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Deliver POSTs the submission record and returns the identifier assigned by
// the remote endpoint.
func (s *APIStrategy) Deliver(ctx context.Context, submission *models.ContactSubmission) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(submission)
	if err != nil {
		return "", fmt.Errorf("%w: encode payload: %v", ErrRemoteDelivery, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrRemoteDelivery, err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrDeliveryTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrRemoteDelivery, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrRemoteDelivery, err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		s.logger.Error().
			Int("status", response.StatusCode).
			Str("body", string(body)).
			Str("reference_id", submission.ReferenceID).
			Msg("remote endpoint rejected submission")
		return "", fmt.Errorf("%w: endpoint returned %d", ErrRemoteDelivery, response.StatusCode)
	}

	var decoded remoteResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrRemoteDelivery, err)
	}
	if decoded.ID == "" {
		decoded.ID = submission.ReferenceID
	}
	return decoded.ID, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
