package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionStatus enum constants
const (
	SubmissionDraft       = "DRAFT"
	SubmissionSubmitted   = "SUBMITTED"
	SubmissionUnderReview = "UNDER_REVIEW"
	SubmissionApproved    = "APPROVED"
	SubmissionDenied      = "DENIED"
)

// PafSubmission is one Personnel Action Form moving through an approval chain.
// Status and CurrentStep are cached projections of the submission's
// ApprovalStep ledger — only the workflow engine writes them, always inside
// the same transaction as the ledger change they reflect.
type PafSubmission struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    string    `gorm:"type:varchar(64);not null;index" json:"tenant_id"` // district identifier, opaque here
	TemplateID  uuid.UUID `gorm:"type:uuid;not null;index" json:"template_id"`
	FormData    string    `gorm:"type:jsonb;not null" json:"form_data"` // opaque payload, never inspected
	Status      string    `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	CurrentStep int       `gorm:"not null;default:0" json:"current_step"` // 0 while draft
	SubmittedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"submitted_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID exists.
func (s *PafSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether the submission has reached a final outcome.
func (s *PafSubmission) Terminal() bool {
	return s.Status == SubmissionApproved || s.Status == SubmissionDenied
}
