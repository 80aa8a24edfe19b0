package service_test

import (
	"context"
	"io"
	"sync"
	"time"

	"paf-backend/internal/model"
	"paf-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the GORM repositories. A single
// mutex plays the role of the database's row locking, so the step
// compare-and-set keeps its exactly-one-winner guarantee under the race
// tests.
type memStore struct {
	mu          sync.Mutex
	templates   map[uuid.UUID]model.WorkflowTemplate
	submissions map[uuid.UUID]model.PafSubmission
	steps       map[uuid.UUID][]model.ApprovalStep // keyed by submission id
	audits      []model.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		templates:   make(map[uuid.UUID]model.WorkflowTemplate),
		submissions: make(map[uuid.UUID]model.PafSubmission),
		steps:       make(map[uuid.UUID][]model.ApprovalStep),
	}
}

func (m *memStore) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- TemplateRepository ---

func (m *memStore) Create(ctx context.Context, tpl *model.WorkflowTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	m.templates[tpl.ID] = *tpl
	return nil
}

func (m *memStore) FindByID(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl, ok := m.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := tpl
	return &cp, nil
}

func (m *memStore) List(ctx context.Context, page, limit int) ([]model.WorkflowTemplate, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.WorkflowTemplate, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (m *memStore) Update(ctx context.Context, tpl *model.WorkflowTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tpl.ID] = *tpl
	return nil
}

func (m *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, id)
	return nil
}

// templateRepo / submissionRepo / stepRepo / auditRepo split the shared
// store into the four repository interfaces the engine consumes.

type templateRepo struct{ *memStore }

type submissionRepo struct{ *memStore }

func (r submissionRepo) Create(ctx context.Context, sub *model.PafSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	r.submissions[sub.ID] = *sub
	return nil
}

func (r submissionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PafSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := sub
	return &cp, nil
}

func (r submissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]model.PafSubmission, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.PafSubmission, 0)
	for _, s := range r.submissions {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.TenantID != "" && s.TenantID != filter.TenantID {
			continue
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (r submissionRepo) Update(ctx context.Context, sub *model.PafSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.submissions[sub.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.submissions[sub.ID] = *sub
	return nil
}

func (r submissionRepo) MarkSubmitted(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok || sub.Status != model.SubmissionDraft {
		return false, nil
	}
	sub.Status = model.SubmissionSubmitted
	sub.CurrentStep = 1
	r.submissions[id] = sub
	return true, nil
}

func (r submissionRepo) ExistsNonDraftForTemplate(ctx context.Context, templateID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.submissions {
		if s.TemplateID == templateID && s.Status != model.SubmissionDraft {
			return true, nil
		}
	}
	return false, nil
}

type stepRepo struct{ *memStore }

func (r stepRepo) CreateBatch(ctx context.Context, steps []model.ApprovalStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range steps {
		if steps[i].ID == uuid.Nil {
			steps[i].ID = uuid.New()
		}
	}
	if len(steps) > 0 {
		subID := steps[0].SubmissionID
		r.steps[subID] = append(r.steps[subID], steps...)
	}
	return nil
}

func (r stepRepo) FindBySubmission(ctx context.Context, submissionID uuid.UUID) ([]model.ApprovalStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.steps[submissionID]
	out := make([]model.ApprovalStep, len(src))
	copy(out, src)
	return out, nil
}

func (r stepRepo) Find(ctx context.Context, submissionID uuid.UUID, step int) (*model.ApprovalStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.steps[submissionID] {
		if s.Step == step {
			cp := s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r stepRepo) Transition(ctx context.Context, submissionID uuid.UUID, step int, fields map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	steps := r.steps[submissionID]
	for i, s := range steps {
		if s.Step != step {
			continue
		}
		if s.Status != model.StepPending && s.Status != model.StepNeedsCorrection {
			return false, nil
		}
		applyStepFields(&steps[i], fields)
		return true, nil
	}
	return false, nil
}

func (r stepRepo) ResetApprovedToPending(ctx context.Context, submissionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	steps := r.steps[submissionID]
	for i, s := range steps {
		if s.Status == model.StepApproved {
			steps[i].Status = model.StepPending
			steps[i].ApproverUserID = nil
			steps[i].SignedAt = nil
			steps[i].Signature = ""
			steps[i].Comments = ""
		}
	}
	return nil
}

func applyStepFields(s *model.ApprovalStep, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "status":
			s.Status = v.(string)
		case "approver_user_id":
			id := v.(uuid.UUID)
			s.ApproverUserID = &id
		case "signed_at":
			t := v.(time.Time)
			s.SignedAt = &t
		case "signature":
			s.Signature = v.(string)
		case "comments":
			s.Comments = v.(string)
		case "correction_reason":
			s.CorrectionReason = v.(string)
		}
	}
}

type auditRepo struct{ *memStore }

func (r auditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.audits = append(r.audits, *entry)
	return nil
}

func (r auditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditLog, len(r.audits))
	copy(out, r.audits)
	return out, int64(len(out)), nil
}

func (r auditRepo) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditLog, 0)
	for _, a := range r.audits {
		if a.SubmissionID == submissionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// auditActions returns the recorded action names for a submission, in order.
func (m *memStore) auditActions(submissionID uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0)
	for _, a := range m.audits {
		if a.SubmissionID == submissionID {
			out = append(out, a.Action)
		}
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
