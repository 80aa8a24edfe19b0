package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"paf-backend/internal/model"
	"paf-backend/internal/repository"
	"paf-backend/pkg/signing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const timeFormat = time.RFC3339

// Step actions accepted by ActOnStep.
const (
	ActionApprove           = "approve"
	ActionReject            = "reject"
	ActionRequestCorrection = "request_correction"
)

// --- DTOs ---

// Actor is the authenticated caller of an engine operation. The engine never
// reaches into ambient session state; identity and role are always passed in.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

type CreateSubmissionDTO struct {
	TenantID   string `json:"tenant_id" binding:"required"`
	TemplateID string `json:"template_id" binding:"required"`
	FormData   string `json:"form_data" binding:"required"` // JSON snapshot of the PAF
}

type ActOnStepDTO struct {
	Comments         string `json:"comments"`
	CorrectionReason string `json:"correction_reason"`
}

type SubmissionResponse struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	TemplateID  string `json:"template_id"`
	FormData    string `json:"form_data"`
	Status      string `json:"status"`
	CurrentStep int    `json:"current_step"`
	SubmittedBy string `json:"submitted_by"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type StepResponse struct {
	SubmissionID     string  `json:"submission_id"`
	Step             int     `json:"step"`
	ApproverRole     string  `json:"approver_role"`
	Title            string  `json:"title"`
	Status           string  `json:"status"`
	ApproverUserID   *string `json:"approver_user_id"`
	SignedAt         *string `json:"signed_at"`
	Signature        string  `json:"signature,omitempty"`
	Comments         string  `json:"comments,omitempty"`
	CorrectionReason string  `json:"correction_reason,omitempty"`
}

// DecisionResponse is returned by ActOnStep: the updated submission plus the
// step that was acted on.
type DecisionResponse struct {
	Submission SubmissionResponse `json:"submission"`
	Step       StepResponse       `json:"step"`
}

// --- Interface ---

// WorkflowService is the PAF approval workflow engine. It exclusively owns
// creation and mutation of submissions and their approval step ledgers, and
// pairs every successful transition with an audit record inside the same
// transaction.
type WorkflowService interface {
	CreateSubmission(ctx context.Context, actor Actor, req CreateSubmissionDTO) (SubmissionResponse, error)
	Submit(ctx context.Context, actor Actor, submissionID string) (SubmissionResponse, error)
	ActOnStep(ctx context.Context, actor Actor, submissionID string, step int, action string, req ActOnStepDTO) (DecisionResponse, error)
	GetSubmission(ctx context.Context, submissionID string) (SubmissionResponse, error)
	GetSteps(ctx context.Context, submissionID string) ([]StepResponse, error)
	ListSubmissions(ctx context.Context, filter repository.SubmissionFilter) ([]SubmissionResponse, int64, error)
	RebuildStatus(ctx context.Context, submissionID string) (SubmissionResponse, error)
}

// Notifier pushes transition events to connected approver dashboards.
type Notifier interface {
	GetBroadcast() chan []byte
}

type workflowService struct {
	templates   repository.TemplateRepository
	submissions repository.SubmissionRepository
	steps       repository.StepRepository
	audit       repository.AuditRepository
	tx          repository.TransactionManager
	gate        RoleGate
	signer      *signing.Signer
	hub         Notifier // optional
	log         *logrus.Logger
}

func NewWorkflowService(
	templates repository.TemplateRepository,
	submissions repository.SubmissionRepository,
	steps repository.StepRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	gate RoleGate,
	signer *signing.Signer,
	hub Notifier,
	log *logrus.Logger,
) WorkflowService {
	return &workflowService{
		templates:   templates,
		submissions: submissions,
		steps:       steps,
		audit:       audit,
		tx:          tx,
		gate:        gate,
		signer:      signer,
		hub:         hub,
		log:         log,
	}
}

// --- Implementation ---

func (s *workflowService) CreateSubmission(ctx context.Context, actor Actor, req CreateSubmissionDTO) (SubmissionResponse, error) {
	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		return SubmissionResponse{}, E(KindNotFound, "invalid template id %q", req.TemplateID)
	}

	tpl, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubmissionResponse{}, E(KindNotFound, "workflow template %s not found", req.TemplateID)
		}
		return SubmissionResponse{}, Wrap(KindUnavailable, err, "failed to load workflow template")
	}
	if len(tpl.Steps) == 0 {
		return SubmissionResponse{}, E(KindInvalidTemplate, "template %s defines no steps", req.TemplateID)
	}

	sub := model.PafSubmission{
		TenantID:    req.TenantID,
		TemplateID:  tpl.ID,
		FormData:    req.FormData,
		Status:      model.SubmissionDraft,
		CurrentStep: 0,
		SubmittedBy: actor.ID,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.submissions.Create(txCtx, &sub); createErr != nil {
			return Wrap(KindUnavailable, createErr, "failed to create submission")
		}

		// Materialize the ledger from the template snapshot. Later template
		// edits never touch this submission.
		ledger := make([]model.ApprovalStep, 0, len(tpl.Steps))
		for _, def := range tpl.Steps {
			ledger = append(ledger, model.ApprovalStep{
				SubmissionID: sub.ID,
				Step:         def.Order,
				ApproverRole: def.Role,
				Title:        def.Title,
				Status:       model.StepPending,
			})
		}
		if stepErr := s.steps.CreateBatch(txCtx, ledger); stepErr != nil {
			return Wrap(KindUnavailable, stepErr, "failed to materialize approval steps")
		}

		return s.writeAudit(txCtx, auditEntry{
			tenantID:     sub.TenantID,
			actorID:      actor.ID,
			action:       model.ActionCreateSubmission,
			submissionID: sub.ID,
			afterStatus:  model.SubmissionDraft,
			details:      map[string]interface{}{"template_id": tpl.ID.String(), "steps": len(tpl.Steps)},
		})
	})
	if err != nil {
		return SubmissionResponse{}, err
	}

	return toSubmissionResponse(sub), nil
}

func (s *workflowService) Submit(ctx context.Context, actor Actor, submissionID string) (SubmissionResponse, error) {
	sub, err := s.findSubmission(ctx, submissionID)
	if err != nil {
		return SubmissionResponse{}, err
	}

	if sub.Status != model.SubmissionDraft {
		return SubmissionResponse{}, E(KindInvalidTransition, "submission %s is %s, only drafts can be submitted", submissionID, sub.Status)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// Status-guarded update: two racing submits of the same draft must
		// produce exactly one SUBMIT transition and one audit row.
		ok, markErr := s.submissions.MarkSubmitted(txCtx, sub.ID)
		if markErr != nil {
			return Wrap(KindUnavailable, markErr, "failed to submit")
		}
		if !ok {
			return E(KindInvalidTransition, "submission %s is no longer a draft", submissionID)
		}
		sub.Status = model.SubmissionSubmitted
		sub.CurrentStep = 1

		return s.writeAudit(txCtx, auditEntry{
			tenantID:     sub.TenantID,
			actorID:      actor.ID,
			action:       model.ActionSubmit,
			submissionID: sub.ID,
			beforeStatus: model.SubmissionDraft,
			afterStatus:  model.SubmissionSubmitted,
		})
	})
	if err != nil {
		return SubmissionResponse{}, err
	}

	s.broadcast(sub, 0, "submit")
	return toSubmissionResponse(*sub), nil
}

func (s *workflowService) ActOnStep(ctx context.Context, actor Actor, submissionID string, step int, action string, req ActOnStepDTO) (DecisionResponse, error) {
	if action != ActionApprove && action != ActionReject && action != ActionRequestCorrection {
		return DecisionResponse{}, E(KindInvalidTransition, "unknown step action %q", action)
	}

	sub, err := s.findSubmission(ctx, submissionID)
	if err != nil {
		return DecisionResponse{}, err
	}

	if sub.Terminal() {
		return DecisionResponse{}, E(KindInvalidTransition, "submission %s is already %s", submissionID, sub.Status)
	}
	if sub.Status == model.SubmissionDraft {
		return DecisionResponse{}, E(KindInvalidTransition, "submission %s has not been submitted", submissionID)
	}
	if step != sub.CurrentStep {
		return DecisionResponse{}, E(KindStepOutOfOrder, "step %d is not current (current step is %d)", step, sub.CurrentStep)
	}

	stepRec, err := s.steps.Find(ctx, sub.ID, step)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DecisionResponse{}, E(KindNotFound, "step %d not found for submission %s", step, submissionID)
		}
		return DecisionResponse{}, Wrap(KindUnavailable, err, "failed to load approval step")
	}

	if !s.gate.Authorize(actor.Role, stepRec.ApproverRole) {
		s.recordDeniedAttempt(ctx, sub, step, actor, model.ActionForbiddenAttempt, action)
		return DecisionResponse{}, E(KindForbidden, "role %s may not act on step %d (requires %s)", actor.Role, step, stepRec.ApproverRole)
	}

	now := time.Now()
	fields, auditAction, err := s.decisionFields(sub.ID, step, action, actor, now, req)
	if err != nil {
		return DecisionResponse{}, err
	}

	beforeStatus := sub.Status
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		ok, casErr := s.steps.Transition(txCtx, sub.ID, step, fields)
		if casErr != nil {
			return Wrap(KindUnavailable, casErr, "failed to update approval step")
		}
		if !ok {
			return E(KindConflict, "step %d of submission %s was decided concurrently", step, submissionID)
		}

		if action == ActionRequestCorrection {
			if resetErr := s.steps.ResetApprovedToPending(txCtx, sub.ID); resetErr != nil {
				return Wrap(KindUnavailable, resetErr, "failed to rewind approved steps")
			}
		}

		// Recompute the cached status from the ledger inside the same
		// transaction; it is never set independently of a ledger write.
		ledger, loadErr := s.steps.FindBySubmission(txCtx, sub.ID)
		if loadErr != nil {
			return Wrap(KindUnavailable, loadErr, "failed to reload approval steps")
		}
		sub.Status = DeriveStatus(ledger, true)

		switch {
		case sub.Status == model.SubmissionDenied:
			// Denial short-circuits; the pointer stays on the rejecting step.
		case sub.Status == model.SubmissionApproved:
			// Terminal; pointer stays on the final step.
		case action == ActionRequestCorrection:
			sub.CurrentStep = 1
		default:
			sub.CurrentStep = step + 1
		}

		if saveErr := s.submissions.Update(txCtx, sub); saveErr != nil {
			return Wrap(KindUnavailable, saveErr, "failed to update submission")
		}

		return s.writeAudit(txCtx, auditEntry{
			tenantID:     sub.TenantID,
			actorID:      actor.ID,
			action:       auditAction,
			submissionID: sub.ID,
			step:         step,
			beforeStatus: beforeStatus,
			afterStatus:  sub.Status,
			details: map[string]interface{}{
				"action":            action,
				"comments":          req.Comments,
				"correction_reason": req.CorrectionReason,
			},
		})
	})
	if err != nil {
		if IsKind(err, KindConflict) {
			s.recordDeniedAttempt(ctx, sub, step, actor, model.ActionConcurrencyConflict, action)
		}
		return DecisionResponse{}, err
	}

	s.broadcast(sub, step, action)

	updated, err := s.steps.Find(ctx, sub.ID, step)
	if err != nil {
		return DecisionResponse{}, Wrap(KindUnavailable, err, "failed to reload approval step")
	}
	return DecisionResponse{
		Submission: toSubmissionResponse(*sub),
		Step:       toStepResponse(*updated),
	}, nil
}

func (s *workflowService) GetSubmission(ctx context.Context, submissionID string) (SubmissionResponse, error) {
	sub, err := s.findSubmission(ctx, submissionID)
	if err != nil {
		return SubmissionResponse{}, err
	}
	return toSubmissionResponse(*sub), nil
}

func (s *workflowService) GetSteps(ctx context.Context, submissionID string) ([]StepResponse, error) {
	sub, err := s.findSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	ledger, err := s.steps.FindBySubmission(ctx, sub.ID)
	if err != nil {
		return nil, Wrap(KindUnavailable, err, "failed to load approval steps")
	}

	result := make([]StepResponse, 0, len(ledger))
	for _, st := range ledger {
		result = append(result, toStepResponse(st))
	}
	return result, nil
}

func (s *workflowService) ListSubmissions(ctx context.Context, filter repository.SubmissionFilter) ([]SubmissionResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	submissions, total, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, 0, Wrap(KindUnavailable, err, "failed to list submissions")
	}

	result := make([]SubmissionResponse, 0, len(submissions))
	for _, sub := range submissions {
		result = append(result, toSubmissionResponse(sub))
	}
	return result, total, nil
}

// RebuildStatus recomputes the cached status and step pointer from the
// approval step ledger alone, repairing drift after a partial restore. The
// derivation is idempotent: rebuilding a healthy submission is a no-op.
func (s *workflowService) RebuildStatus(ctx context.Context, submissionID string) (SubmissionResponse, error) {
	sub, err := s.findSubmission(ctx, submissionID)
	if err != nil {
		return SubmissionResponse{}, err
	}

	ledger, err := s.steps.FindBySubmission(ctx, sub.ID)
	if err != nil {
		return SubmissionResponse{}, Wrap(KindUnavailable, err, "failed to load approval steps")
	}

	// The ledger cannot distinguish draft from submitted before any action;
	// the draft flag is the one bit taken from the cached record.
	submitted := sub.Status != model.SubmissionDraft
	derivedStatus := DeriveStatus(ledger, submitted)
	derivedStep := DeriveCurrentStep(ledger, derivedStatus)

	if derivedStatus == sub.Status && derivedStep == sub.CurrentStep {
		return toSubmissionResponse(*sub), nil
	}

	beforeStatus := sub.Status
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sub.Status = derivedStatus
		sub.CurrentStep = derivedStep
		if saveErr := s.submissions.Update(txCtx, sub); saveErr != nil {
			return Wrap(KindUnavailable, saveErr, "failed to rebuild submission status")
		}

		return s.writeAudit(txCtx, auditEntry{
			tenantID:     sub.TenantID,
			action:       model.ActionRebuildStatus,
			submissionID: sub.ID,
			beforeStatus: beforeStatus,
			afterStatus:  derivedStatus,
		})
	})
	if err != nil {
		return SubmissionResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"before":        beforeStatus,
		"after":         derivedStatus,
	}).Warn("rebuilt submission status from ledger")

	return toSubmissionResponse(*sub), nil
}

// --- Internals ---

func (s *workflowService) findSubmission(ctx context.Context, id string) (*model.PafSubmission, error) {
	subID, err := uuid.Parse(id)
	if err != nil {
		return nil, E(KindNotFound, "invalid submission id %q", id)
	}

	sub, err := s.submissions.FindByID(ctx, subID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(KindNotFound, "submission %s not found", id)
		}
		return nil, Wrap(KindUnavailable, err, "failed to load submission")
	}
	return sub, nil
}

// decisionFields builds the CAS update for one step decision. Approvals and
// rejections are stamped with the approver, time, and a keyed signature;
// correction requests record who asked and why.
func (s *workflowService) decisionFields(submissionID uuid.UUID, step int, action string, actor Actor, now time.Time, req ActOnStepDTO) (map[string]interface{}, string, error) {
	switch action {
	case ActionApprove, ActionReject:
		sig, err := s.signer.Sign(submissionID, step, actor.ID, now)
		if err != nil {
			return nil, "", Wrap(KindUnavailable, err, "failed to sign step decision")
		}
		status := model.StepApproved
		auditAction := model.ActionApproveStep
		if action == ActionReject {
			status = model.StepRejected
			auditAction = model.ActionRejectStep
		}
		return map[string]interface{}{
			"status":           status,
			"approver_user_id": actor.ID,
			"signed_at":        now,
			"signature":        sig,
			"comments":         req.Comments,
		}, auditAction, nil
	case ActionRequestCorrection:
		if req.CorrectionReason == "" {
			return nil, "", E(KindInvalidTransition, "a correction request requires a reason")
		}
		return map[string]interface{}{
			"status":            model.StepNeedsCorrection,
			"approver_user_id":  actor.ID,
			"signed_at":         now,
			"comments":          req.Comments,
			"correction_reason": req.CorrectionReason,
		}, model.ActionRequestCorrection, nil
	}
	return nil, "", E(KindInvalidTransition, "unknown step action %q", action)
}

type auditEntry struct {
	tenantID     string
	actorID      uuid.UUID
	action       string
	submissionID uuid.UUID
	step         int
	beforeStatus string
	afterStatus  string
	details      map[string]interface{}
}

func (s *workflowService) writeAudit(ctx context.Context, e auditEntry) error {
	var actorID *uuid.UUID
	if e.actorID != uuid.Nil {
		actorID = &e.actorID
	}

	details := ""
	if e.details != nil {
		raw, _ := json.Marshal(e.details)
		details = string(raw)
	}

	entry := model.AuditLog{
		TenantID:     e.tenantID,
		ActorID:      actorID,
		Action:       e.action,
		SubmissionID: e.submissionID,
		Step:         e.step,
		BeforeStatus: e.beforeStatus,
		AfterStatus:  e.afterStatus,
		Details:      details,
	}
	if err := s.audit.Log(ctx, &entry); err != nil {
		return Wrap(KindUnavailable, err, "failed to write audit log")
	}
	return nil
}

// recordDeniedAttempt appends an audit row for an attempt that did not
// change state. Forbidden and lost-race attempts must be distinguishable
// from "never attempted", so the append happens outside the rolled-back
// transaction; a failure here is logged but does not mask the original error.
func (s *workflowService) recordDeniedAttempt(ctx context.Context, sub *model.PafSubmission, step int, actor Actor, auditAction, attempted string) {
	err := s.writeAudit(ctx, auditEntry{
		tenantID:     sub.TenantID,
		actorID:      actor.ID,
		action:       auditAction,
		submissionID: sub.ID,
		step:         step,
		beforeStatus: sub.Status,
		afterStatus:  sub.Status,
		details:      map[string]interface{}{"attempted_action": attempted, "actor_role": actor.Role.String()},
	})
	if err != nil {
		s.log.WithError(err).Error("failed to record denied attempt")
	}

	s.log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"step":          step,
		"actor_id":      actor.ID,
		"actor_role":    actor.Role,
		"event":         auditAction,
	}).Warn("workflow action denied")
}

func (s *workflowService) broadcast(sub *model.PafSubmission, step int, action string) {
	if s.hub == nil {
		return
	}
	event, _ := json.Marshal(map[string]interface{}{
		"type":          "paf.transition",
		"submission_id": sub.ID.String(),
		"tenant_id":     sub.TenantID,
		"step":          step,
		"action":        action,
		"status":        sub.Status,
		"current_step":  sub.CurrentStep,
	})
	select {
	case s.hub.GetBroadcast() <- event:
	default:
		// Dashboards are best-effort; never block a transition on a slow hub.
	}
}

// --- Helpers ---

func toSubmissionResponse(s model.PafSubmission) SubmissionResponse {
	return SubmissionResponse{
		ID:          s.ID.String(),
		TenantID:    s.TenantID,
		TemplateID:  s.TemplateID.String(),
		FormData:    s.FormData,
		Status:      s.Status,
		CurrentStep: s.CurrentStep,
		SubmittedBy: s.SubmittedBy.String(),
		CreatedAt:   s.CreatedAt.Format(timeFormat),
		UpdatedAt:   s.UpdatedAt.Format(timeFormat),
	}
}

func toStepResponse(st model.ApprovalStep) StepResponse {
	resp := StepResponse{
		SubmissionID:     st.SubmissionID.String(),
		Step:             st.Step,
		ApproverRole:     st.ApproverRole.String(),
		Title:            st.Title,
		Status:           st.Status,
		Signature:        st.Signature,
		Comments:         st.Comments,
		CorrectionReason: st.CorrectionReason,
	}
	if st.ApproverUserID != nil {
		id := st.ApproverUserID.String()
		resp.ApproverUserID = &id
	}
	if st.SignedAt != nil {
		ts := st.SignedAt.Format(timeFormat)
		resp.SignedAt = &ts
	}
	return resp
}
