package domain

// Stage represents one phase of a migration run
type Stage string

const (
	StageAffiliateGroups Stage = "affiliate_groups"
	StageAffiliates      Stage = "affiliates"
	StageReferrals       Stage = "referrals"
	StageCustomers       Stage = "customers"
	StagePayouts         Stage = "payouts"
	StageVisits          Stage = "visits"
	StageCompleted       Stage = "completed"
)

var stageSequence = []Stage{
	StageAffiliateGroups,
	StageAffiliates,
	StageReferrals,
	StageCustomers,
	StagePayouts,
	StageVisits,
}

// Stages returns the working stages in execution order
func Stages() []Stage {
	stages := make([]Stage, len(stageSequence))
	copy(stages, stageSequence)
	return stages
}

// Valid checks if the stage is a working stage or the terminal stage
func (s Stage) Valid() bool {
	return s == StageCompleted || s.index() >= 0
}

// Next returns the stage following s. The terminal stage maps to itself.
func (s Stage) Next() Stage {
	i := s.index()
	if i < 0 || i == len(stageSequence)-1 {
		return StageCompleted
	}
	return stageSequence[i+1]
}

// Before reports whether s runs strictly before other
func (s Stage) Before(other Stage) bool {
	return s.order() < other.order()
}

// CursorKey returns the status document key holding the stage cursor
func (s Stage) CursorKey() string {
	return "migrated_" + string(s) + "_count"
}

func (s Stage) index() int {
	for i, stage := range stageSequence {
		if stage == s {
			return i
		}
	}
	return -1
}

func (s Stage) order() int {
	if s == StageCompleted {
		return len(stageSequence)
	}
	return s.index()
}

// LinkPass is a linking step run once the visits stage is exhausted
type LinkPass string

// Link passes in execution order. An empty pass means linking has not started.
const (
	LinkPassCustomers    LinkPass = "customers"
	LinkPassVisitLinks   LinkPass = "visit_links"
	LinkPassVisitsByTime LinkPass = "visits_by_time"
	LinkPassPayouts      LinkPass = "payouts"
	LinkPassPayoutTotals LinkPass = "payout_totals"
	LinkPassDone         LinkPass = "done"
)
