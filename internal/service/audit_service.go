package service

import (
	"context"
	"errors"

	"paf-backend/internal/model"
	"paf-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	ActorID      string `json:"actor_id"`
	Action       string `json:"action"`
	SubmissionID string `json:"submission_id"`
	Step         int    `json:"step"`
	BeforeStatus string `json:"before_status"`
	AfterStatus  string `json:"after_status"`
	Details      string `json:"details"`
	CreatedAt    string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
	GetSubmissionTrail(ctx context.Context, submissionID string) ([]AuditLogResponse, error)
}

type auditService struct {
	audit repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(audit repository.AuditRepository) AuditService {
	return &auditService{audit: audit}
}

func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.audit.List(ctx, page, limit)
	if err != nil {
		return nil, 0, Wrap(KindUnavailable, err, "failed to list audit logs")
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toAuditResponse(l))
	}
	return res, total, nil
}

// GetSubmissionTrail returns the full transition history for one submission
// in chronological order, including forbidden and lost-race attempts.
func (s *auditService) GetSubmissionTrail(ctx context.Context, submissionID string) ([]AuditLogResponse, error) {
	id, err := uuid.Parse(submissionID)
	if err != nil {
		return nil, E(KindNotFound, "invalid submission id %q", submissionID)
	}

	logs, err := s.audit.ListBySubmission(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(KindNotFound, "submission %s not found", submissionID)
		}
		return nil, Wrap(KindUnavailable, err, "failed to load audit trail")
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toAuditResponse(l))
	}
	return res, nil
}

func toAuditResponse(l model.AuditLog) AuditLogResponse {
	actorID := ""
	if l.ActorID != nil {
		actorID = l.ActorID.String()
	}
	return AuditLogResponse{
		ID:           l.ID.String(),
		TenantID:     l.TenantID,
		ActorID:      actorID,
		Action:       l.Action,
		SubmissionID: l.SubmissionID.String(),
		Step:         l.Step,
		BeforeStatus: l.BeforeStatus,
		AfterStatus:  l.AfterStatus,
		Details:      l.Details,
		CreatedAt:    l.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
