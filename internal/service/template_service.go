package service

import (
	"context"
	"errors"
	"sort"

	"paf-backend/internal/model"
	"paf-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type StepDefinitionDTO struct {
	Order int    `json:"order" binding:"required,min=1"`
	Role  string `json:"role" binding:"required"`
	Title string `json:"title"`
}

type CreateTemplateDTO struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Steps       []StepDefinitionDTO `json:"steps" binding:"required"`
}

type TemplateResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Steps       []StepDefinitionDTO `json:"steps"`
	CreatedAt   string              `json:"created_at"`
}

// --- Interface ---

// TemplateService is the workflow template registry: named, ordered chains
// of approver roles. Templates referenced by any non-draft submission are
// frozen against edits and deletion.
type TemplateService interface {
	CreateTemplate(ctx context.Context, req CreateTemplateDTO) (TemplateResponse, error)
	GetTemplate(ctx context.Context, id string) (TemplateResponse, error)
	ListTemplates(ctx context.Context, page, limit int) ([]TemplateResponse, int64, error)
	UpdateTemplate(ctx context.Context, id string, req CreateTemplateDTO) (TemplateResponse, error)
	DeleteTemplate(ctx context.Context, id string) error
}

type templateService struct {
	templates   repository.TemplateRepository
	submissions repository.SubmissionRepository
}

func NewTemplateService(templates repository.TemplateRepository, submissions repository.SubmissionRepository) TemplateService {
	return &templateService{templates: templates, submissions: submissions}
}

// --- Implementation ---

func (s *templateService) CreateTemplate(ctx context.Context, req CreateTemplateDTO) (TemplateResponse, error) {
	steps, err := validateSteps(req.Steps)
	if err != nil {
		return TemplateResponse{}, err
	}

	tpl := model.WorkflowTemplate{
		Name:        req.Name,
		Description: req.Description,
		Steps:       steps,
	}
	if err := s.templates.Create(ctx, &tpl); err != nil {
		return TemplateResponse{}, Wrap(KindUnavailable, err, "failed to create workflow template")
	}

	return toTemplateResponse(tpl), nil
}

func (s *templateService) GetTemplate(ctx context.Context, id string) (TemplateResponse, error) {
	tpl, err := s.findTemplate(ctx, id)
	if err != nil {
		return TemplateResponse{}, err
	}
	return toTemplateResponse(*tpl), nil
}

func (s *templateService) ListTemplates(ctx context.Context, page, limit int) ([]TemplateResponse, int64, error) {
	templates, total, err := s.templates.List(ctx, page, limit)
	if err != nil {
		return nil, 0, Wrap(KindUnavailable, err, "failed to list workflow templates")
	}

	result := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		result = append(result, toTemplateResponse(t))
	}
	return result, total, nil
}

func (s *templateService) UpdateTemplate(ctx context.Context, id string, req CreateTemplateDTO) (TemplateResponse, error) {
	tpl, err := s.findTemplate(ctx, id)
	if err != nil {
		return TemplateResponse{}, err
	}

	if err := s.ensureNotInUse(ctx, tpl.ID); err != nil {
		return TemplateResponse{}, err
	}

	steps, err := validateSteps(req.Steps)
	if err != nil {
		return TemplateResponse{}, err
	}

	tpl.Name = req.Name
	tpl.Description = req.Description
	tpl.Steps = steps
	if err := s.templates.Update(ctx, tpl); err != nil {
		return TemplateResponse{}, Wrap(KindUnavailable, err, "failed to update workflow template")
	}

	return toTemplateResponse(*tpl), nil
}

func (s *templateService) DeleteTemplate(ctx context.Context, id string) error {
	tpl, err := s.findTemplate(ctx, id)
	if err != nil {
		return err
	}

	if err := s.ensureNotInUse(ctx, tpl.ID); err != nil {
		return err
	}

	if err := s.templates.Delete(ctx, tpl.ID); err != nil {
		return Wrap(KindUnavailable, err, "failed to delete workflow template")
	}
	return nil
}

func (s *templateService) findTemplate(ctx context.Context, id string) (*model.WorkflowTemplate, error) {
	templateID, err := uuid.Parse(id)
	if err != nil {
		return nil, E(KindNotFound, "invalid template id %q", id)
	}

	tpl, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(KindNotFound, "workflow template %s not found", id)
		}
		return nil, Wrap(KindUnavailable, err, "failed to load workflow template")
	}
	return tpl, nil
}

func (s *templateService) ensureNotInUse(ctx context.Context, templateID uuid.UUID) error {
	inUse, err := s.submissions.ExistsNonDraftForTemplate(ctx, templateID)
	if err != nil {
		return Wrap(KindUnavailable, err, "failed to check template usage")
	}
	if inUse {
		return E(KindConflict, "template %s is referenced by an active submission and is immutable", templateID)
	}
	return nil
}

// validateSteps enforces the template invariant: orders contiguous from 1,
// unique, at least one step, every role from the known set.
func validateSteps(dtos []StepDefinitionDTO) ([]model.StepDefinition, error) {
	if len(dtos) == 0 {
		return nil, E(KindInvalidTemplate, "a template must define at least one step")
	}

	sorted := make([]StepDefinitionDTO, len(dtos))
	copy(sorted, dtos)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	steps := make([]model.StepDefinition, 0, len(sorted))
	for i, d := range sorted {
		if d.Order != i+1 {
			return nil, E(KindInvalidTemplate, "step orders must be contiguous starting at 1, got %d at position %d", d.Order, i+1)
		}
		role := model.Role(d.Role)
		if !role.IsValid() {
			return nil, E(KindInvalidTemplate, "unknown approver role %q", d.Role)
		}
		steps = append(steps, model.StepDefinition{
			Order: d.Order,
			Role:  role,
			Title: d.Title,
		})
	}
	return steps, nil
}

// --- Helpers ---

func toTemplateResponse(t model.WorkflowTemplate) TemplateResponse {
	steps := make([]StepDefinitionDTO, 0, len(t.Steps))
	for _, s := range t.Steps {
		steps = append(steps, StepDefinitionDTO{
			Order: s.Order,
			Role:  s.Role.String(),
			Title: s.Title,
		})
	}
	return TemplateResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		Steps:       steps,
		CreatedAt:   t.CreatedAt.Format(timeFormat),
	}
}
