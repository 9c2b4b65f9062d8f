package orchestrator

import (
	"errors"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
)

// ErrIllegalTransition marks an attempted stage change outside the
// transition table. It is fatal to the request, never to the session.
var ErrIllegalTransition = errors.New("illegal stage transition")

// transitions is the complete state machine. Anything absent here is
// illegal; SALARY_CHECK -> UNDERWRITING is the only backward edge.
var transitions = map[loan.Stage][]loan.Stage{
	loan.StageIntake:       {loan.StageVerification},
	loan.StageVerification: {loan.StageUnderwriting},
	loan.StageUnderwriting: {loan.StageSanction, loan.StageSalaryCheck, loan.StageRejected},
	loan.StageSalaryCheck:  {loan.StageUnderwriting},
	loan.StageSanction:     {loan.StageComplete},
}

func allowed(from, to loan.Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves the session to the next stage, enforcing the table. The
// orchestrator is the sole caller; stage components never touch Stage.
func (o *Orchestrator) transition(sess *loan.Session, to loan.Stage) error {
	if !allowed(sess.Stage, to) {
		o.log.Error("illegal transition attempted",
			"session", sess.ID, "from", string(sess.Stage), "to", string(to))
		return ErrIllegalTransition
	}

	o.log.Info("stage transition", "session", sess.ID,
		"from", string(sess.Stage), "to", string(to))
	sess.Stage = to
	return nil
}
