package service

import "paf-backend/internal/model"

// DeriveStatus recomputes a submission's status from its approval step
// ledger alone. The cached status column is only ever written with this
// function's output, inside the same transaction as the ledger change, so
// the two cannot drift. It is also the recovery path: rebuilding status
// from the audit-durable step table requires nothing else.
//
// Rules: any REJECTED step wins (denied); all APPROVED wins (approved); any
// decided or correction-marked step means review is in progress; an
// untouched ledger reflects the pre-review phase (submitted or draft).
func DeriveStatus(steps []model.ApprovalStep, submitted bool) string {
	if len(steps) == 0 {
		if submitted {
			return model.SubmissionSubmitted
		}
		return model.SubmissionDraft
	}

	allApproved := true
	anyActed := false
	for _, s := range steps {
		switch s.Status {
		case model.StepRejected:
			return model.SubmissionDenied
		case model.StepApproved:
			anyActed = true
		case model.StepNeedsCorrection:
			anyActed = true
			allApproved = false
		default:
			allApproved = false
		}
	}

	if allApproved {
		return model.SubmissionApproved
	}
	if anyActed {
		return model.SubmissionUnderReview
	}
	if submitted {
		return model.SubmissionSubmitted
	}
	return model.SubmissionDraft
}

// DeriveCurrentStep recomputes the step pointer from the ledger. For live
// submissions it is the lowest step not yet approved; terminal submissions
// keep the pointer where the chain stopped. Used by the status rebuild path
// alongside DeriveStatus.
func DeriveCurrentStep(steps []model.ApprovalStep, status string) int {
	switch status {
	case model.SubmissionDraft:
		return 0
	case model.SubmissionDenied:
		for _, s := range steps {
			if s.Status == model.StepRejected {
				return s.Step
			}
		}
		return 0
	case model.SubmissionApproved:
		if len(steps) == 0 {
			return 0
		}
		return steps[len(steps)-1].Step
	}
	for _, s := range steps {
		if s.Status != model.StepApproved {
			return s.Step
		}
	}
	return 0
}
