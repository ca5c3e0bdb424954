package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/repository"
)

// Completion marker columns per wizard step
var (
	personalColumns  = []string{domain.ColFullName, domain.ColEmployeeEmail, domain.ColEmployeeID, domain.ColOrganisation}
	teamColumns      = []string{domain.ColTeamChoice, domain.ColRole, domain.ColTeamRegisteredAt}
	routeColumns     = []string{domain.ColPreferredRoute}
	logisticsColumns = []string{domain.ColShirtSize, domain.ColTravellingFrom, domain.ColNotes, domain.ColHikingExperience}
)

// ResolveNextStep returns the first wizard step whose completion predicate is
// unmet, or review when all are met. A nil record resolves to the personal step.
//
// Personal and team predicates are vacuously complete when none of their
// columns exist in the record at all. Logistics needs any one of its columns
// filled, the other steps need all of them.
func ResolveNextStep(rec domain.Record) domain.Step {
	if rec == nil {
		return domain.StepPersonal
	}

	switch {
	case !allFilledOrAbsent(rec, personalColumns):
		return domain.StepPersonal
	case !allFilledOrAbsent(rec, teamColumns):
		return domain.StepTeam
	case !anyFilled(rec, routeColumns):
		return domain.StepRoute
	case !anyFilled(rec, logisticsColumns):
		return domain.StepLogistics
	default:
		return domain.StepReview
	}
}

func allFilledOrAbsent(rec domain.Record, columns []string) bool {
	present := false
	for _, c := range columns {
		if _, ok := rec[c]; ok {
			present = true
			break
		}
	}
	if !present {
		return true
	}

	for _, c := range columns {
		if !filled(rec[c]) {
			return false
		}
	}
	return true
}

func anyFilled(rec domain.Record, columns []string) bool {
	for _, c := range columns {
		if filled(rec[c]) {
			return true
		}
	}
	return false
}

func filled(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case *string:
		return val != nil && *val != ""
	case float64:
		return !math.IsNaN(val)
	case time.Time:
		return !val.IsZero()
	case *time.Time:
		return val != nil && !val.IsZero()
	default:
		return true
	}
}

// StepResolver picks the step a returning user resumes at
type StepResolver struct {
	memberRepo repository.MemberRepository
	logger     *slog.Logger
}

// NewStepResolver creates a new StepResolver
func NewStepResolver(memberRepo repository.MemberRepository, logger *slog.Logger) *StepResolver {
	return &StepResolver{
		memberRepo: memberRepo,
		logger:     logger,
	}
}

// Resume resolves the next step for a session. The in-progress draft wins over
// the persisted row. Lookup failures of any kind fall back to the personal step.
func (r *StepResolver) Resume(ctx context.Context, session *domain.Session) domain.Step {
	if !session.Draft.IsEmpty() {
		return ResolveNextStep(session.Draft.Record())
	}

	rec, err := r.memberRepo.GetRecordByEmail(ctx, session.Email)
	if err != nil {
		if !isNotFound(err) {
			r.logger.Warn("Registration lookup failed, resuming at first step", "error", err)
		}
		return domain.StepPersonal
	}

	return ResolveNextStep(rec)
}
