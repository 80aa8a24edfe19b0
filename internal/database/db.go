package database

import (
	applog "paf-backend/internal/log"
	"paf-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate workflow models
	err = db.AutoMigrate(
		&model.WorkflowTemplate{},
		&model.StepDefinition{},
		&model.PafSubmission{},
		&model.ApprovalStep{},
		&model.AuditLog{},
	)
	if err != nil {
		applog.GetLogger().WithError(err).Warn("failed to auto-migrate models")
	}

	return db, nil
}
