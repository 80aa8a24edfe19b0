package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateSubmission  = "CREATE_SUBMISSION"
	ActionSubmit            = "SUBMIT"
	ActionApproveStep       = "APPROVE_STEP"
	ActionRejectStep        = "REJECT_STEP"
	ActionRequestCorrection = "REQUEST_CORRECTION"
	ActionRebuildStatus     = "REBUILD_STATUS"

	// Security / ordering events recorded even though the operation failed
	ActionForbiddenAttempt    = "FORBIDDEN_ATTEMPT"
	ActionConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// AuditLog tracks Who, What, and When for every workflow transition attempt.
// Append-only; one row per attempt, including forbidden and lost-race attempts.
type AuditLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     string     `gorm:"type:varchar(64);index" json:"tenant_id"`
	ActorID      *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"` // nullable for system-initiated actions
	Action       string     `gorm:"type:varchar(50);not null;index" json:"action"`
	SubmissionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"submission_id"`
	Step         int        `json:"step"` // 0 for submission-level actions
	BeforeStatus string     `gorm:"type:varchar(20)" json:"before_status"`
	AfterStatus  string     `gorm:"type:varchar(20)" json:"after_status"`
	Details      string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

// BeforeCreate ensures a UUID exists.
func (l *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
