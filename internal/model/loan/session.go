package loan

import (
	"errors"
	"time"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/money"
)

var (
	// ErrVerificationSet guards the set-once verification record.
	ErrVerificationSet = errors.New("verification record already set")
	// ErrDecisionSet guards the set-once underwriting decision.
	ErrDecisionSet = errors.New("decision already recorded")
	// ErrArtifactSet guards the set-once sanction artifact handle.
	ErrArtifactSet = errors.New("artifact reference already set")
	// ErrNotApproved rejects artifact attachment without an approval.
	ErrNotApproved = errors.New("artifact requires an approved decision")
)

// Outcome is the underwriting verdict for an application.
type Outcome string

const (
	OutcomeApproved      Outcome = "APPROVED"
	OutcomeRejected      Outcome = "REJECTED"
	OutcomePendingSalary Outcome = "PENDING_SALARY"
)

// Applicant accumulates the slots collected during intake. Fields are set
// exactly once; conflicting later input is clarified, never overwritten.
type Applicant struct {
	Name          string        `json:"name,omitempty"`
	Purpose       string        `json:"purpose,omitempty"`
	Amount        money.Amount  `json:"requestedAmount,omitempty"`
	TenureMonths  int           `json:"tenureMonths,omitempty"`
	Contact       string        `json:"contact,omitempty"`
	Salary        *money.Amount `json:"salary,omitempty"`
	AnnualRatePct float64       `json:"annualRatePct,omitempty"`
}

// Verification holds the facts gathered from the identity lookup. Populated
// once by the verification stage; intake never guesses a credit score.
type Verification struct {
	IdentityConfirmed bool         `json:"identityConfirmed"`
	CreditScore       int          `json:"creditScore"`
	PreApprovedLimit  money.Amount `json:"preApprovedLimit"`
}

// Decision is the evaluator's verdict plus the figures behind it.
type Decision struct {
	Outcome  Outcome      `json:"outcome"`
	Reason   string       `json:"reason"`
	EMI      money.Amount `json:"emi,omitempty"`
	DTIRatio float64      `json:"dtiRatio,omitempty"`
}

// Turn is one entry in the append-only conversation log.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the unit of work: one applicant's journey through the stages.
// The orchestrator is the sole mutator of Stage and the record fields.
type Session struct {
	ID           string        `json:"id"`
	Stage        Stage         `json:"stage"`
	Applicant    Applicant     `json:"applicant"`
	Verification *Verification `json:"verification,omitempty"`
	Decision     *Decision     `json:"decision,omitempty"`
	ArtifactRef  string        `json:"artifactRef,omitempty"`
	Log          []Turn        `json:"log"`
	CreatedAt    time.Time     `json:"createdAt"`

	// Dialogue bookkeeping for the bounded re-prompt policy.
	AskedSlot   string `json:"-"`
	AskAttempts int    `json:"-"`
}

// Append records a conversation turn.
func (s *Session) Append(role, text string) {
	s.Log = append(s.Log, Turn{Role: role, Text: text, CreatedAt: time.Now().UTC()})
}

// SetVerification stores the verification record exactly once.
func (s *Session) SetVerification(v Verification) error {
	if s.Verification != nil {
		return ErrVerificationSet
	}
	s.Verification = &v
	return nil
}

// RecordDecision stores an underwriting verdict. A PENDING_SALARY verdict may
// be superseded by the re-evaluation after salary collection; APPROVED and
// REJECTED are final.
func (s *Session) RecordDecision(d Decision) error {
	if s.Decision != nil && s.Decision.Outcome != OutcomePendingSalary {
		return ErrDecisionSet
	}
	s.Decision = &d
	return nil
}

// AttachArtifact stores the sanction artifact handle, once, and only for an
// approved application.
func (s *Session) AttachArtifact(ref string) error {
	if s.ArtifactRef != "" {
		return ErrArtifactSet
	}
	if s.Decision == nil || s.Decision.Outcome != OutcomeApproved {
		return ErrNotApproved
	}
	s.ArtifactRef = ref
	return nil
}

// Snapshot returns a copy safe to hand to readers while the orchestrator may
// keep mutating the original.
func (s *Session) Snapshot() Session {
	dup := *s
	dup.Log = append([]Turn(nil), s.Log...)
	if s.Verification != nil {
		v := *s.Verification
		dup.Verification = &v
	}
	if s.Decision != nil {
		d := *s.Decision
		dup.Decision = &d
	}
	if s.Applicant.Salary != nil {
		sal := *s.Applicant.Salary
		dup.Applicant.Salary = &sal
	}
	return dup
}
