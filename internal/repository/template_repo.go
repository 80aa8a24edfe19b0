package repository

import (
	"context"

	"paf-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(ctx context.Context, tpl *model.WorkflowTemplate) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error)
	List(ctx context.Context, page, limit int) ([]model.WorkflowTemplate, int64, error)
	Update(ctx context.Context, tpl *model.WorkflowTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type templateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, tpl *model.WorkflowTemplate) error {
	return GetDB(ctx, r.db).Create(tpl).Error
}

func (r *templateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error) {
	var tpl model.WorkflowTemplate
	err := GetDB(ctx, r.db).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order ASC") }).
		First(&tpl, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepository) List(ctx context.Context, page, limit int) ([]model.WorkflowTemplate, int64, error) {
	var templates []model.WorkflowTemplate
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.WorkflowTemplate{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order ASC") }).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&templates).Error
	if err != nil {
		return nil, 0, err
	}

	return templates, total, nil
}

// Update replaces the template and its step rows. Save alone upserts the
// Steps association without removing replaced rows, which would leave two
// rows sharing a step_order; the old rows are deleted first, in the same
// transaction as the save.
func (r *templateRepository) Update(ctx context.Context, tpl *model.WorkflowTemplate) error {
	return GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", tpl.ID).Delete(&model.StepDefinition{}).Error; err != nil {
			return err
		}
		return tx.Save(tpl).Error
	})
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.WorkflowTemplate{}, "id = ?", id).Error
}
