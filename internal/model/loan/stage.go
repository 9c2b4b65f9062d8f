package loan

// Stage identifies where a session sits in the origination journey.
type Stage string

const (
	StageIntake       Stage = "INTAKE"
	StageVerification Stage = "VERIFICATION"
	StageUnderwriting Stage = "UNDERWRITING"
	StageSalaryCheck  Stage = "SALARY_CHECK"
	StageSanction     Stage = "SANCTION"
	StageRejected     Stage = "REJECTED"
	StageComplete     Stage = "COMPLETE"
)

// Terminal reports whether the stage accepts no further business mutation.
func (s Stage) Terminal() bool {
	return s == StageRejected || s == StageComplete
}

// rank orders stages along the forward progression of the journey. The
// SALARY_CHECK -> UNDERWRITING re-entry is the single sanctioned regression.
var rank = map[Stage]int{
	StageIntake:       0,
	StageVerification: 1,
	StageUnderwriting: 2,
	StageSalaryCheck:  3,
	StageSanction:     4,
	StageRejected:     5,
	StageComplete:     5,
}

// Before reports whether s precedes other in journey order.
func (s Stage) Before(other Stage) bool {
	return rank[s] < rank[other]
}
