package dto

import (
	"time"

	"github.com/formgate/formgate/internal/models"
)

// SubmissionRequest defines the expected payload for the contact form endpoint.
type SubmissionRequest struct {
	Name      string     `json:"name" validate:"required,min=2,max=120"`
	Email     string     `json:"email" validate:"required,email,max=160"`
	Subject   string     `json:"subject" validate:"omitempty,min=3,max=200"`
	Message   string     `json:"message" validate:"required,min=10,max=5000"`
	Source    string     `json:"source" validate:"omitempty,max=60"`
	UserAgent string     `json:"user_agent" validate:"omitempty,max=255"`
	Timestamp *time.Time `json:"timestamp"`
	Honeypot  string     `json:"_gotcha"`
	IPAddress string     `json:"-"`

	// Metadata carries arbitrary client tags, persisted verbatim.
	Metadata map[string]interface{} `json:"metadata" validate:"omitempty,max=20"`
}

// Outcome codes surfaced to callers. Stable strings; never raw errors.
const (
	CodeValidationError     = "validation_error"
	CodeSpamDetected        = "spam_detected"
	CodeRateLimited         = "rate_limited"
	CodeDuplicateSubmission = "duplicate_submission"
	CodeTimeoutError        = "timeout_error"
	CodeNetworkError        = "network_error"
	CodePersistenceError    = "persistence_error"
	CodeUnknownError        = "unknown_error"
)

// SubmitOutcome communicates the result of a dispatch to the caller.
type SubmitOutcome struct {
	Success      bool              `json:"success"`
	ID           string            `json:"id,omitempty"`
	Code         string            `json:"code,omitempty"`
	Message      string            `json:"message"`
	Fields       map[string]string `json:"fields,omitempty"`
	RetryAfterMs int64             `json:"retry_after_ms,omitempty"`
}

// AdminSubmissionListRequest defines filters for listing stored submissions.
type AdminSubmissionListRequest struct {
	Search   string `query:"search" validate:"omitempty,max=160"`
	Status   string `query:"status" validate:"omitempty,oneof=received notified"`
	Sort     string `query:"sort" validate:"omitempty,oneof=newest oldest"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// PaginationMeta captures paging information for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// AdminSubmissionResponse is the serialized representation of a stored submission.
type AdminSubmissionResponse struct {
	ReferenceID string    `json:"reference_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	Source      string    `json:"source,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// AdminSubmissionListResponse contains a page of submissions.
type AdminSubmissionListResponse struct {
	Items      []AdminSubmissionResponse `json:"items"`
	Pagination PaginationMeta            `json:"pagination"`
}

// NewAdminSubmissionResponse converts a model into a DTO.
func NewAdminSubmissionResponse(model models.ContactSubmission) AdminSubmissionResponse {
	return AdminSubmissionResponse{
		ReferenceID: model.ReferenceID,
		Name:        model.Name,
		Email:       model.Email,
		Subject:     model.Subject,
		Message:     model.Message,
		Source:      model.Source,
		IPAddress:   model.IPAddress,
		UserAgent:   model.UserAgent,
		Status:      model.Status,
		SubmittedAt: model.SubmittedAt,
		CreatedAt:   model.CreatedAt,
	}
}

// NewAdminSubmissionResponseSlice converts a slice of models into DTOs.
func NewAdminSubmissionResponseSlice(items []models.ContactSubmission) []AdminSubmissionResponse {
	out := make([]AdminSubmissionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewAdminSubmissionResponse(item))
	}
	return out
}
