package service

import (
	"github.com/aidar/challenge-portal/internal/domain"
)

// EvaluateAdmission decides whether a registrant counts against capacity.
// Below capacity everyone is admitted. At capacity new registrants are
// waitlisted, already waitlisted registrants may not edit, and active
// registrants keep their place.
func EvaluateAdmission(activeCount, capacity int, isNew, onWaitingList bool) domain.AdmissionDecision {
	switch {
	case activeCount < capacity:
		return domain.Admit
	case isNew:
		return domain.Waitlist
	case onWaitingList:
		return domain.RejectEdit
	default:
		return domain.Admit
	}
}

// TeamRemainingSlots returns how many active members a team can still take
func TeamRemainingSlots(activeMembers, capacity int) int {
	return max(0, capacity-activeMembers)
}

// admissionFunc adapts EvaluateAdmission to the storage commit callback.
// RejectEdit aborts the commit with ErrWaitlistFrozen.
func admissionFunc(capacity int) func(int, *domain.Member) (bool, error) {
	return func(active int, existing *domain.Member) (bool, error) {
		isNew := existing == nil
		onWaitingList := existing != nil && existing.OnWaitingList

		switch EvaluateAdmission(active, capacity, isNew, onWaitingList) {
		case domain.Waitlist:
			return true, nil
		case domain.RejectEdit:
			return false, domain.ErrWaitlistFrozen
		default:
			return false, nil
		}
	}
}

// forceActive keeps the final review submission behaviour: the registration is
// written as active without re-running admission.
func forceActive(int, *domain.Member) (bool, error) {
	return false, nil
}
