package repository

import (
	"context"

	"paf-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionFilter narrows List results; zero values mean "no filter".
type SubmissionFilter struct {
	TenantID string
	Status   string
	Page     int
	Limit    int
}

type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.PafSubmission) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PafSubmission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]model.PafSubmission, int64, error)
	Update(ctx context.Context, sub *model.PafSubmission) error
	// MarkSubmitted moves a submission out of draft only if it still is one.
	// Returns false when another writer submitted it first.
	MarkSubmitted(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsNonDraftForTemplate(ctx context.Context, templateID uuid.UUID) (bool, error)
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, sub *model.PafSubmission) error {
	return GetDB(ctx, r.db).Create(sub).Error
}

func (r *submissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PafSubmission, error) {
	var sub model.PafSubmission
	if err := GetDB(ctx, r.db).First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]model.PafSubmission, int64, error) {
	var submissions []model.PafSubmission
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.PafSubmission{})
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) Update(ctx context.Context, sub *model.PafSubmission) error {
	return GetDB(ctx, r.db).Save(sub).Error
}

func (r *submissionRepository) MarkSubmitted(ctx context.Context, id uuid.UUID) (bool, error) {
	// Same compare-and-set shape as the step transition: the status guard in
	// the WHERE clause makes a double submit lose instead of double-writing.
	res := GetDB(ctx, r.db).Model(&model.PafSubmission{}).
		Where("id = ? AND status = ?", id, model.SubmissionDraft).
		Updates(map[string]interface{}{
			"status":       model.SubmissionSubmitted,
			"current_step": 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExistsNonDraftForTemplate reports whether any submission referencing the
// template has left draft. Templates in that position are frozen.
func (r *submissionRepository) ExistsNonDraftForTemplate(ctx context.Context, templateID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PafSubmission{}).
		Where("template_id = ? AND status <> ?", templateID, model.SubmissionDraft).
		Count(&count).Error
	return count > 0, err
}
