package repository

import (
	"context"

	"paf-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StepRepository interface {
	CreateBatch(ctx context.Context, steps []model.ApprovalStep) error
	FindBySubmission(ctx context.Context, submissionID uuid.UUID) ([]model.ApprovalStep, error)
	Find(ctx context.Context, submissionID uuid.UUID, step int) (*model.ApprovalStep, error)
	// Transition applies fields to the (submissionID, step) row only if its
	// status is still actionable (PENDING or NEEDS_CORRECTION). Returns false
	// when another writer already decided the step — the caller lost the race.
	Transition(ctx context.Context, submissionID uuid.UUID, step int, fields map[string]interface{}) (bool, error)
	// ResetApprovedToPending rewinds prior approvals for a correction loop,
	// clearing approver, signature, and timestamp on every APPROVED row.
	ResetApprovedToPending(ctx context.Context, submissionID uuid.UUID) error
}

type stepRepository struct {
	db *gorm.DB
}

func NewStepRepository(db *gorm.DB) StepRepository {
	return &stepRepository{db: db}
}

func (r *stepRepository) CreateBatch(ctx context.Context, steps []model.ApprovalStep) error {
	return GetDB(ctx, r.db).Create(&steps).Error
}

func (r *stepRepository) FindBySubmission(ctx context.Context, submissionID uuid.UUID) ([]model.ApprovalStep, error) {
	var steps []model.ApprovalStep
	err := GetDB(ctx, r.db).
		Where("submission_id = ?", submissionID).
		Order("step ASC").
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *stepRepository) Find(ctx context.Context, submissionID uuid.UUID, step int) (*model.ApprovalStep, error) {
	var s model.ApprovalStep
	err := GetDB(ctx, r.db).
		First(&s, "submission_id = ? AND step = ?", submissionID, step).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *stepRepository) Transition(ctx context.Context, submissionID uuid.UUID, step int, fields map[string]interface{}) (bool, error) {
	// Compare-and-set: the WHERE clause on status is the single serialization
	// point guaranteeing exactly one terminal outcome per step.
	res := GetDB(ctx, r.db).Model(&model.ApprovalStep{}).
		Where("submission_id = ? AND step = ? AND status IN ?",
			submissionID, step, []string{model.StepPending, model.StepNeedsCorrection}).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *stepRepository) ResetApprovedToPending(ctx context.Context, submissionID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.ApprovalStep{}).
		Where("submission_id = ? AND status = ?", submissionID, model.StepApproved).
		Updates(map[string]interface{}{
			"status":           model.StepPending,
			"approver_user_id": nil,
			"signed_at":        nil,
			"signature":        "",
			"comments":         "",
		}).Error
}
