package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContactSubmission is the persisted form of a submission that passed every
// pipeline gate. Records are immutable after creation except for the delivery
// status transition.
type ContactSubmission struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	ReferenceID string            `gorm:"size:64;uniqueIndex" json:"reference_id"`
	Name        string            `gorm:"size:120;not null" json:"name"`
	Email       string            `gorm:"size:160;index;not null" json:"email"`
	Subject     string            `gorm:"size:200" json:"subject"`
	Message     string            `gorm:"type:text;not null" json:"message"`
	Source      string            `gorm:"size:60;index" json:"source"`
	IPAddress   string            `gorm:"size:64" json:"ip_address"`
	UserAgent   string            `gorm:"size:255" json:"user_agent"`
	Status      string            `gorm:"size:32;default:received;index" json:"status"`
	Checksum    string            `gorm:"size:64;index" json:"-"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Submission delivery statuses.
const (
	SubmissionStatusReceived = "received"
	SubmissionStatusNotified = "notified"
)
