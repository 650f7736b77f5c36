package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/formgate/formgate/internal/dto"
	"github.com/formgate/formgate/internal/repository"
)

// ErrSubmissionNotFound indicates the requested submission does not exist.
var ErrSubmissionNotFound = errors.New("submission not found")

// AdminSubmissionService exposes read operations over stored submissions.
type AdminSubmissionService interface {
	List(ctx context.Context, req dto.AdminSubmissionListRequest) (dto.AdminSubmissionListResponse, error)
	Get(ctx context.Context, referenceID string) (dto.AdminSubmissionResponse, error)
}

type adminSubmissionService struct {
	repo   repository.SubmissionRepository
	logger zerolog.Logger
}

// NewAdminSubmissionService constructs the admin read service.
func NewAdminSubmissionService(repo repository.SubmissionRepository, logger zerolog.Logger) AdminSubmissionService {
	return &adminSubmissionService{
		repo:   repo,
		logger: logger.With().Str("component", "admin_submission_service").Logger(),
	}
}

func (s *adminSubmissionService) List(ctx context.Context, req dto.AdminSubmissionListRequest) (dto.AdminSubmissionListResponse, error) {
	filter := repository.SubmissionFilter{
		Search:   strings.TrimSpace(req.Search),
		Status:   strings.TrimSpace(req.Status),
		Sort:     sortClause(req.Sort),
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
	}

	submissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AdminSubmissionListResponse{}, err
	}

	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize != 0 {
		totalPages++
	}

	return dto.AdminSubmissionListResponse{
		Items: dto.NewAdminSubmissionResponseSlice(submissions),
		Pagination: dto.PaginationMeta{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalItems: total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *adminSubmissionService) Get(ctx context.Context, referenceID string) (dto.AdminSubmissionResponse, error) {
	submission, err := s.repo.GetByReference(ctx, strings.TrimSpace(referenceID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AdminSubmissionResponse{}, ErrSubmissionNotFound
	}
	if err != nil {
		return dto.AdminSubmissionResponse{}, err
	}
	return dto.NewAdminSubmissionResponse(submission), nil
}

func sortClause(sort string) string {
	switch sort {
	case "oldest":
		return "created_at ASC"
	default:
		return "created_at DESC"
	}
}
