package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StepStatus enum constants
const (
	StepPending         = "PENDING"
	StepApproved        = "APPROVED"
	StepRejected        = "REJECTED"
	StepNeedsCorrection = "NEEDS_CORRECTION"
)

// ApprovalStep is the ledger entry for one position in one submission's
// approval chain. Step is the template's order value and is the record's
// permanent identity together with SubmissionID; ApproverRole is copied
// from the template when the submission is created.
type ApprovalStep struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_submission_step" json:"submission_id"`
	Step             int        `gorm:"not null;uniqueIndex:idx_submission_step" json:"step"`
	ApproverRole     Role       `gorm:"type:varchar(50);not null" json:"approver_role"`
	Title            string     `gorm:"type:varchar(255)" json:"title"`
	Status           string     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	ApproverUserID   *uuid.UUID `gorm:"type:uuid" json:"approver_user_id"`
	SignedAt         *time.Time `json:"signed_at"`
	Signature        string     `gorm:"type:varchar(128)" json:"signature"`
	Comments         string     `gorm:"type:text" json:"comments"`
	CorrectionReason string     `gorm:"type:text" json:"correction_reason"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// BeforeCreate ensures a UUID exists.
func (s *ApprovalStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
