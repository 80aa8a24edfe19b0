package service_test

import (
	"context"
	"testing"

	"paf-backend/internal/model"
	"paf-backend/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry() (*memStore, service.TemplateService) {
	store := newMemStore()
	return store, service.NewTemplateService(templateRepo{store}, submissionRepo{store})
}

func validTemplate() service.CreateTemplateDTO {
	return service.CreateTemplateDTO{
		Name: "New Hire",
		Steps: []service.StepDefinitionDTO{
			{Order: 1, Role: "supervisor", Title: "Supervisor review"},
			{Order: 2, Role: "hr_director", Title: "HR approval"},
		},
	}
}

func TestCreateTemplate(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid", func(t *testing.T) {
		_, svc := newRegistry()
		tpl, err := svc.CreateTemplate(ctx, validTemplate())
		require.NoError(t, err)
		require.Len(t, tpl.Steps, 2)
		assert.Equal(t, 1, tpl.Steps[0].Order)
	})

	t.Run("OrdersAcceptedInAnyInputOrder", func(t *testing.T) {
		_, svc := newRegistry()
		req := validTemplate()
		req.Steps = []service.StepDefinitionDTO{
			{Order: 2, Role: "hr_director"},
			{Order: 1, Role: "supervisor"},
		}
		tpl, err := svc.CreateTemplate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 1, tpl.Steps[0].Order)
		assert.Equal(t, 2, tpl.Steps[1].Order)
	})

	invalid := map[string][]service.StepDefinitionDTO{
		"Empty":       {},
		"StartsAtTwo": {{Order: 2, Role: "supervisor"}},
		"Gap":         {{Order: 1, Role: "supervisor"}, {Order: 3, Role: "hr_director"}},
		"Duplicate":   {{Order: 1, Role: "supervisor"}, {Order: 1, Role: "hr_director"}},
		"UnknownRole": {{Order: 1, Role: "janitor_general"}},
	}
	for name, steps := range invalid {
		t.Run(name, func(t *testing.T) {
			_, svc := newRegistry()
			req := validTemplate()
			req.Steps = steps
			_, err := svc.CreateTemplate(ctx, req)
			assert.True(t, service.IsKind(err, service.KindInvalidTemplate), "got %v", err)
		})
	}
}

func TestGetTemplate(t *testing.T) {
	ctx := context.Background()
	_, svc := newRegistry()

	created, err := svc.CreateTemplate(ctx, validTemplate())
	require.NoError(t, err)

	got, err := svc.GetTemplate(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)

	_, err = svc.GetTemplate(ctx, uuid.NewString())
	assert.True(t, service.IsKind(err, service.KindNotFound))

	_, err = svc.GetTemplate(ctx, "not-a-uuid")
	assert.True(t, service.IsKind(err, service.KindNotFound))
}

func TestTemplateFrozenWhileInUse(t *testing.T) {
	ctx := context.Background()
	store, svc := newRegistry()

	created, err := svc.CreateTemplate(ctx, validTemplate())
	require.NoError(t, err)
	templateID, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	// A draft submission does not freeze the template.
	draft := model.PafSubmission{ID: uuid.New(), TemplateID: templateID, Status: model.SubmissionDraft}
	store.submissions[draft.ID] = draft

	_, err = svc.UpdateTemplate(ctx, created.ID, validTemplate())
	require.NoError(t, err)

	// A submitted one does.
	active := model.PafSubmission{ID: uuid.New(), TemplateID: templateID, Status: model.SubmissionSubmitted}
	store.submissions[active.ID] = active

	_, err = svc.UpdateTemplate(ctx, created.ID, validTemplate())
	assert.True(t, service.IsKind(err, service.KindConflict))

	err = svc.DeleteTemplate(ctx, created.ID)
	assert.True(t, service.IsKind(err, service.KindConflict))
}
