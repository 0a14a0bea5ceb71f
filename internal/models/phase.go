// internal/models/phase.go
package models

import (
	"fmt"
	"strings"
)

// Phase is one of the sequential stages of a California probate case.
type Phase string

const (
	PhaseIntake             Phase = "Intake"
	PhasePetitionFiling     Phase = "Petition Filing"
	PhaseNoticePublication  Phase = "Notice & Publication"
	PhaseCourtHearing       Phase = "Court Hearing"
	PhaseLettersIssued      Phase = "Letters Issued"
	PhaseAssetDiscovery     Phase = "Asset Discovery"
	PhaseInventoryAppraisal Phase = "Inventory & Appraisal"
	PhaseCreditorClaims     Phase = "Creditor Claims"
	PhaseTaxReturns         Phase = "Tax Returns"
	PhaseFinalAccounting    Phase = "Final Accounting"
	PhaseClosing            Phase = "Closing"
)

// Phases lists every phase in workflow order.
var Phases = []Phase{
	PhaseIntake,
	PhasePetitionFiling,
	PhaseNoticePublication,
	PhaseCourtHearing,
	PhaseLettersIssued,
	PhaseAssetDiscovery,
	PhaseInventoryAppraisal,
	PhaseCreditorClaims,
	PhaseTaxReturns,
	PhaseFinalAccounting,
	PhaseClosing,
}

// ParsePhase matches s against the phase names ignoring case, surrounding
// space, and "&" versus "and".
func ParsePhase(s string) (Phase, error) {
	want := normalizePhase(s)
	for _, p := range Phases {
		if normalizePhase(string(p)) == want {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

func normalizePhase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " and ", " & ")
	return strings.Join(strings.Fields(s), " ")
}

// Index returns the zero-based position of p, or -1 for an unknown phase.
func (p Phase) Index() int {
	for i, known := range Phases {
		if p == known {
			return i
		}
	}
	return -1
}

// Next returns the phase after p. ok is false for Closing and unknown phases.
func (p Phase) Next() (next Phase, ok bool) {
	i := p.Index()
	if i < 0 || i == len(Phases)-1 {
		return "", false
	}
	return Phases[i+1], true
}

// Number is the 1-based phase number shown to users.
func (p Phase) Number() int {
	return p.Index() + 1
}

func (p Phase) String() string {
	return string(p)
}
