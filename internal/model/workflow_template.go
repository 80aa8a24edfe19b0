package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkflowTemplate defines a named, ordered chain of approver roles.
// A submission snapshots the chain at creation time, so editing a template
// never changes an in-flight submission.
type WorkflowTemplate struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	Steps       []StepDefinition `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"steps"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// BeforeCreate ensures a UUID exists.
func (t *WorkflowTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// StepDefinition is one position in a template's approval chain.
// Order values must be contiguous starting at 1 and unique within a template.
type StepDefinition struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	TemplateID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Order      int       `gorm:"column:step_order;not null" json:"order"` // "order" is reserved in SQL
	Role       Role      `gorm:"type:varchar(50);not null" json:"role"`
	Title      string    `gorm:"type:varchar(255)" json:"title"`
}

func (StepDefinition) TableName() string {
	return "workflow_template_steps"
}

// BeforeCreate ensures a UUID exists.
func (s *StepDefinition) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
