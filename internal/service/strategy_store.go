package service

import (
	"context"
	"fmt"

	"github.com/formgate/formgate/internal/models"
	"github.com/formgate/formgate/internal/repository"
)

// StoreStrategy persists submissions through the repository; the generated
// reference id becomes the submission identifier.
type StoreStrategy struct {
	repo repository.SubmissionRepository
}

// NewStoreStrategy constructs the database delivery strategy.
func NewStoreStrategy(repo repository.SubmissionRepository) *StoreStrategy {
	return &StoreStrategy{repo: repo}
}

// Deliver writes the submission record.
func (s *StoreStrategy) Deliver(ctx context.Context, submission *models.ContactSubmission) (string, error) {
	if err := s.repo.Create(ctx, submission); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return submission.ReferenceID, nil
}
