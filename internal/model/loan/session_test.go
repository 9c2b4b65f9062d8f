package loan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/money"
)

func TestSetVerificationOnce(t *testing.T) {
	s := &Session{}
	require.NoError(t, s.SetVerification(Verification{CreditScore: 750}))
	assert.ErrorIs(t, s.SetVerification(Verification{CreditScore: 800}), ErrVerificationSet)
	assert.Equal(t, 750, s.Verification.CreditScore)
}

func TestRecordDecisionPendingMayBeSuperseded(t *testing.T) {
	s := &Session{}
	require.NoError(t, s.RecordDecision(Decision{Outcome: OutcomePendingSalary}))
	require.NoError(t, s.RecordDecision(Decision{Outcome: OutcomeApproved}))
	assert.ErrorIs(t, s.RecordDecision(Decision{Outcome: OutcomeRejected}), ErrDecisionSet)
	assert.Equal(t, OutcomeApproved, s.Decision.Outcome)
}

func TestAttachArtifactRequiresApproval(t *testing.T) {
	s := &Session{}
	assert.ErrorIs(t, s.AttachArtifact("letter.txt"), ErrNotApproved)

	require.NoError(t, s.RecordDecision(Decision{Outcome: OutcomeApproved}))
	require.NoError(t, s.AttachArtifact("letter.txt"))
	assert.ErrorIs(t, s.AttachArtifact("other.txt"), ErrArtifactSet)
	assert.Equal(t, "letter.txt", s.ArtifactRef)
}

func TestSnapshotIsolation(t *testing.T) {
	salary := money.FromRupees(50000)
	s := &Session{ID: "s1", Stage: StageIntake}
	s.Applicant.Salary = &salary
	s.Append("user", "hello")

	snap := s.Snapshot()
	s.Append("user", "again")
	*s.Applicant.Salary = money.FromRupees(60000)

	assert.Len(t, snap.Log, 1)
	assert.Equal(t, money.FromRupees(50000), *snap.Applicant.Salary)
}
