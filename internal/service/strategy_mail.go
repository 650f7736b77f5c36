package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/formgate/formgate/internal/models"
)

// MailOpener hands a mailto URL to the surrounding client environment.
type MailOpener func(mailtoURL string) error

// MailStrategy builds a mailto handoff for client-side use. Server processes
// have no mail client, so without an injected opener the strategy fails fast.
type MailStrategy struct {
	address string
	opener  MailOpener
}

// NewMailStrategy constructs the mail-client handoff strategy. The opener may
// be nil, in which case every delivery fails with ErrMailHandoffUnavailable.
func NewMailStrategy(address string, opener MailOpener) *MailStrategy {
	return &MailStrategy{address: address, opener: opener}
}

// Deliver builds the mailto payload and hands it to the opener.
func (s *MailStrategy) Deliver(_ context.Context, submission *models.ContactSubmission) (string, error) {
	if s.opener == nil {
		return "", ErrMailHandoffUnavailable
	}
	if err := s.opener(BuildMailtoURL(s.address, submission)); err != nil {
		return "", fmt.Errorf("mail handoff: %w", err)
	}
	return submission.ReferenceID, nil
}

// BuildMailtoURL renders an RFC 6068 mailto URL carrying the submission.
func BuildMailtoURL(address string, submission *models.ContactSubmission) string {
	body := fmt.Sprintf("Name: %s\nEmail: %s\n\n%s", submission.Name, submission.Email, submission.Message)

	values := url.Values{}
	values.Set("subject", submission.Subject)
	values.Set("body", body)

	// mailto bodies use percent-encoded spaces, not form encoding.
	query := strings.ReplaceAll(values.Encode(), "+", "%20")
	return fmt.Sprintf("mailto:%s?%s", address, query)
}
