package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/formgate/formgate/internal/models"
)

// Method selects the delivery strategy for validated submissions. The set is
// closed; configuration naming anything else is rejected at startup.
type Method string

// Supported delivery methods.
const (
	MethodAPI   Method = "api"
	MethodStore Method = "store"
	MethodMail  Method = "mail"
)

// ParseMethod validates a configured method name.
func ParseMethod(raw string) (Method, error) {
	switch Method(raw) {
	case MethodAPI, MethodStore, MethodMail:
		return Method(raw), nil
	default:
		return "", fmt.Errorf("unknown submission method %q", raw)
	}
}

// Strategy finalizes a validated submission and yields its identifier.
type Strategy interface {
	Deliver(ctx context.Context, submission *models.ContactSubmission) (string, error)
}

// Sentinel errors used to classify delivery failures for the caller.
var (
	// ErrDeliveryTimeout marks a remote delivery aborted by its deadline.
	ErrDeliveryTimeout = errors.New("submission delivery timed out")
	// ErrRemoteDelivery marks a remote endpoint failure (transport or non-2xx).
	ErrRemoteDelivery = errors.New("remote submission delivery failed")
	// ErrPersistence marks a failed database write.
	ErrPersistence = errors.New("submission persistence failed")
	// ErrMailHandoffUnavailable is returned when the mail strategy runs
	// without a client-side opener, e.g. inside a headless server process.
	ErrMailHandoffUnavailable = errors.New("mail handoff requires a client environment")
)
