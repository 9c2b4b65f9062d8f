package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/analysis/slots"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/customer"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/intake"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/sanction"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/session"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/underwriting"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/verification"
)

// stubRenderer fails the first failAfter calls, then returns a stable ref.
type stubRenderer struct {
	failures int
	calls    int
}

func (r *stubRenderer) Render(_ context.Context, letter sanction.Letter) (string, error) {
	r.calls++
	if r.calls <= r.failures {
		return "", errors.New("disk full")
	}
	return "generated_letters/sanction_letter_" + letter.SessionID + ".txt", nil
}

func newTestOrchestrator(t *testing.T, renderer sanction.Renderer) *Orchestrator {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	intakeSvc, err := intake.NewService(context.Background(), nil, log)
	require.NoError(t, err)

	if renderer == nil {
		renderer = &stubRenderer{}
	}

	return New(
		session.NewStore(),
		intakeSvc,
		verification.New(customer.NewMemoryDirectory(customer.Seed()), log),
		underwriting.NewEvaluator(underwriting.DefaultPolicy()),
		sanction.New(renderer, log),
		nil,
		log,
	)
}

// say sends one message and fails the test on transport-level errors.
func say(t *testing.T, o *Orchestrator, sessionID, message string) Result {
	t.Helper()
	res, err := o.Advance(context.Background(), sessionID, message)
	require.NoError(t, err)
	return res
}

func TestFullJourneyWithinLimit(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	start, err := o.StartSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loan.StageIntake, start.Stage)
	assert.Contains(t, start.Reply, "Horizon Finance")

	res := say(t, o, start.SessionID, "Hi, my name is Amit Kumar")
	assert.Equal(t, loan.StageIntake, res.Stage)
	assert.Contains(t, res.Reply, "loan be for")

	res = say(t, o, start.SessionID, "It's for a wedding")
	assert.Contains(t, res.Reply, "borrow")

	res = say(t, o, start.SessionID, "2 lakhs")
	assert.Contains(t, res.Reply, "repay")

	res = say(t, o, start.SessionID, "24 months")
	assert.Contains(t, res.Reply, "mobile number")
	assert.Equal(t, loan.StageIntake, res.Stage)

	// Amit's limit is 5L, so 2L flows straight through to sanction.
	res = say(t, o, start.SessionID, "9876543212")
	assert.Equal(t, loan.StageComplete, res.Stage)
	assert.Contains(t, res.Reply, "KYC verification is complete")
	assert.Contains(t, res.Reply, "credit score is 820")
	assert.Contains(t, res.Reply, "APPROVED")
	assert.True(t, res.DownloadAvailable)
	assert.Contains(t, res.ArtifactRef, start.SessionID)

	snap, err := o.Store().Get(start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Amit Kumar", snap.Applicant.Name)
	assert.Equal(t, "wedding", snap.Applicant.Purpose)
	assert.Equal(t, 24, snap.Applicant.TenureMonths)
	assert.InDelta(t, 10.5, snap.Applicant.AnnualRatePct, 0.001)
	require.NotNil(t, snap.Decision)
	assert.Equal(t, loan.OutcomeApproved, snap.Decision.Outcome)
}

func TestSalaryBandJourneyApproved(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	start, err := o.StartSession(context.Background())
	require.NoError(t, err)

	say(t, o, start.SessionID, "my name is Rahul Sharma")
	say(t, o, start.SessionID, "education loan")
	say(t, o, start.SessionID, "5 lakhs")
	say(t, o, start.SessionID, "2 years")

	// 5L is above Rahul's 3L limit but within 2x, so salary is needed.
	res := say(t, o, start.SessionID, "9876543210")
	assert.Equal(t, loan.StageSalaryCheck, res.Stage)
	assert.Contains(t, res.Reply, "monthly take-home salary")

	snap, err := o.Store().Get(start.SessionID)
	require.NoError(t, err)
	require.NotNil(t, snap.Decision)
	assert.Equal(t, loan.OutcomePendingSalary, snap.Decision.Outcome)

	res = say(t, o, start.SessionID, "my salary is 60000 per month")
	assert.Equal(t, loan.StageComplete, res.Stage)
	assert.Contains(t, res.Reply, "APPROVED")
	assert.True(t, res.DownloadAvailable)

	snap, err = o.Store().Get(start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, loan.OutcomeApproved, snap.Decision.Outcome)
	assert.LessOrEqual(t, snap.Decision.DTIRatio, 0.50)
}

func TestSalaryBandJourneyRejected(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	start, err := o.StartSession(context.Background())
	require.NoError(t, err)

	say(t, o, start.SessionID, "my name is Rahul Sharma")
	say(t, o, start.SessionID, "need it for travel")
	say(t, o, start.SessionID, "Rs. 5,00,000")
	say(t, o, start.SessionID, "24 months")

	res := say(t, o, start.SessionID, "9876543210")
	require.Equal(t, loan.StageSalaryCheck, res.Stage)

	res = say(t, o, start.SessionID, "around 20000")
	assert.Equal(t, loan.StageRejected, res.Stage)
	assert.Contains(t, res.Reply, "unable to approve")
	assert.False(t, res.DownloadAvailable)

	snap, err := o.Store().Get(start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, loan.OutcomeRejected, snap.Decision.Outcome)
	assert.Greater(t, snap.Decision.DTIRatio, 0.50)
}

func TestCreditScoreGateRejects(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	start, err := o.StartSession(context.Background())
	require.NoError(t, err)

	say(t, o, start.SessionID, "I am Priya Patel")
	say(t, o, start.SessionID, "medical emergency")
	say(t, o, start.SessionID, "1 lakh")
	say(t, o, start.SessionID, "12 months")

	// Priya's score is 680, below the 700 floor; amount does not matter.
	res := say(t, o, start.SessionID, "9876543211")
	assert.Equal(t, loan.StageRejected, res.Stage)
	assert.Contains(t, res.Reply, "unable to approve")
}

func TestUnknownContactFailsVerification(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	start, err := o.StartSession(context.Background())
	require.NoError(t, err)

	say(t, o, start.SessionID, "my name is Kiran Rao")
	say(t, o, start.SessionID, "business loan")
	say(t, o, start.SessionID, "2 lakhs")
	say(t, o, start.SessionID, "12 months")

	res := say(t, o, start.SessionID, "9999999999")
	assert.Equal(t, loan.StageRejected, res.Stage)
	assert.Contains(t, res.Reply, "could not verify your identity")

	snap, err := o.Store().Get(start.SessionID)
	require.NoError(t, err)
	require.NotNil(t, snap.Verification)
	assert.False(t, snap.Verification.IdentityConfirmed)
	assert.Zero(t, snap.Verification.CreditScore)
}

func TestTerminalSessionStaysTerminal(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	start, err := o.StartSession(context.Background())
	require.NoError(t, err)

	say(t, o, start.SessionID, "I am Priya Patel")
	say(t, o, start.SessionID, "wedding")
	say(t, o, start.SessionID, "1 lakh")
	say(t, o, start.SessionID, "12 months")
	res := say(t, o, start.SessionID, "9876543211")
	require.Equal(t, loan.StageRejected, res.Stage)

	res = say(t, o, start.SessionID, "can you reconsider?")
	assert.Equal(t, loan.StageRejected, res.Stage)
	assert.Contains(t, res.Reply, "fresh application")

	snap, err := o.Store().Get(start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, loan.OutcomeRejected, snap.Decision.Outcome)
}

func TestSanctionRenderFailureKeepsApproval(t *testing.T) {
	renderer := &stubRenderer{failures: 1}
	o := newTestOrchestrator(t, renderer)

	start, err := o.StartSession(context.Background())
	require.NoError(t, err)

	say(t, o, start.SessionID, "my name is Amit Kumar")
	say(t, o, start.SessionID, "home renovation")
	say(t, o, start.SessionID, "3 lakhs")
	say(t, o, start.SessionID, "36 months")

	res, err := o.Advance(context.Background(), start.SessionID, "9876543212")
	require.ErrorIs(t, err, sanction.ErrRenderFailed)
	assert.Equal(t, loan.StageSanction, res.Stage)
	assert.Contains(t, res.Reply, "snag")
	assert.False(t, res.DownloadAvailable)

	snap, err := o.Store().Get(start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, loan.OutcomeApproved, snap.Decision.Outcome)
	assert.Empty(t, snap.ArtifactRef)

	// Any follow-up message retries the letter.
	res = say(t, o, start.SessionID, "please try again")
	assert.Equal(t, loan.StageComplete, res.Stage)
	assert.Contains(t, res.Reply, "APPROVED")
	assert.True(t, res.DownloadAvailable)
	assert.Equal(t, 2, renderer.calls)
}

func TestRepromptEscalatesAfterCap(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	start, err := o.StartSession(context.Background())
	require.NoError(t, err)

	// The opening message already asked for the name, so the first two
	// misses re-ask and the third escalates.
	res := say(t, o, start.SessionID, "hmm")
	assert.Equal(t, intake.Question(slots.KindName), res.Reply)

	res = say(t, o, start.SessionID, "uh huh")
	assert.Equal(t, intake.Question(slots.KindName), res.Reply)

	res = say(t, o, start.SessionID, "what?")
	assert.Equal(t, intake.Clarification(slots.KindName), res.Reply)

	// The counter resets; the next miss re-asks instead of escalating again.
	res = say(t, o, start.SessionID, "hmm")
	assert.Contains(t, res.Reply, "your name")
	assert.NotContains(t, res.Reply, "didn't catch")
}

func TestStageNeverRegresses(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	start, err := o.StartSession(context.Background())
	require.NoError(t, err)

	// Includes the salary loop, retries, and a post-completion message, so
	// the observed stages cover every kind of advance.
	script := []string{
		"my name is Rahul Sharma",
		"hmm",
		"education loan",
		"5 lakhs",
		"2 years",
		"9876543210",
		"let me check with my spouse",
		"my salary is 60000 per month",
		"thank you!",
	}

	prev := start.Stage
	for _, msg := range script {
		res := say(t, o, start.SessionID, msg)
		assert.False(t, res.Stage.Before(prev),
			"stage went from %s back to %s after %q", prev, res.Stage, msg)
		prev = res.Stage
	}
	assert.Equal(t, loan.StageComplete, prev)
}

func TestConflictingSlotValueKeptAsRecorded(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	start, err := o.StartSession(context.Background())
	require.NoError(t, err)

	say(t, o, start.SessionID, "my name is Amit Kumar")
	res := say(t, o, start.SessionID, "my name is Vikram Singh, the loan is for travel")
	assert.Contains(t, res.Reply, "I have your name on record as Amit Kumar")

	snap, err := o.Store().Get(start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Amit Kumar", snap.Applicant.Name)
	assert.Equal(t, "travel", snap.Applicant.Purpose)
}

func TestAdvanceUnknownSession(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	_, err := o.Advance(context.Background(), "no-such-session", "hello")
	assert.ErrorIs(t, err, session.ErrNotFound)
}
