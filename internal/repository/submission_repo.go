package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/formgate/formgate/internal/models"
)

// SubmissionFilter narrows admin listings of stored submissions.
type SubmissionFilter struct {
	Search   string
	Status   string
	Sort     string
	Page     int
	PageSize int
}

// SubmissionRepository persists contact form submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.ContactSubmission) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	GetByReference(ctx context.Context, referenceID string) (models.ContactSubmission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.ContactSubmission, int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository constructs a repository backed by GORM.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.ContactSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.ContactSubmission{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

func (r *submissionRepository) GetByReference(ctx context.Context, referenceID string) (models.ContactSubmission, error) {
	var submission models.ContactSubmission
	if err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		First(&submission).Error; err != nil {
		return models.ContactSubmission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.ContactSubmission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ContactSubmission{})

	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(subject) LIKE ?", like, like, like)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort := filter.Sort
	if sort == "" {
		sort = "created_at DESC"
	}
	query = query.Order(sort)

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Limit(filter.PageSize).Offset((page - 1) * filter.PageSize)
	}

	var submissions []models.ContactSubmission
	if err := query.Find(&submissions).Error; err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}
