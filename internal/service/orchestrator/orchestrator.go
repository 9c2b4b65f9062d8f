package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/analysis/slots"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/ai"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/intake"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/sanction"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/session"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/underwriting"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/verification"
)

// Phraser turns a narration prompt into conversational text. A nil Phraser
// (or any error) falls back to the fixed templates so the conversation
// never stalls on the text-generation service.
type Phraser interface {
	Phrase(ctx context.Context, p ai.Prompt) (string, error)
}

// Result is what the transport layer gets back from one inbound message.
type Result struct {
	SessionID         string     `json:"sessionId"`
	Reply             string     `json:"reply"`
	Stage             loan.Stage `json:"stage"`
	ArtifactRef       string     `json:"artifactRef,omitempty"`
	DownloadAvailable bool       `json:"downloadAvailable"`
}

// Orchestrator owns the per-session state machine. It dispatches each
// inbound message to the stage component matching the current state,
// applies the reported results, and is the sole mutator of session state.
type Orchestrator struct {
	store     *session.Store
	intake    *intake.Service
	verifier  *verification.Stage
	evaluator underwriting.Evaluator
	sanctions *sanction.Stage
	phraser   Phraser
	log       *slog.Logger
}

// New wires the orchestrator. phraser may be nil.
func New(
	store *session.Store,
	intakeSvc *intake.Service,
	verifier *verification.Stage,
	evaluator underwriting.Evaluator,
	sanctions *sanction.Stage,
	phraser Phraser,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		store:     store,
		intake:    intakeSvc,
		verifier:  verifier,
		evaluator: evaluator,
		sanctions: sanctions,
		phraser:   phraser,
		log:       log,
	}
}

// Store exposes the session registry for read-only transport endpoints.
func (o *Orchestrator) Store() *session.Store {
	return o.store
}

// StartSession creates a session and returns the opening message. The
// opening asks for the name, so the asked-slot bookkeeping starts there and
// unparseable first replies count against the re-prompt cap.
func (o *Orchestrator) StartSession(ctx context.Context) (Result, error) {
	sess := o.store.Create()
	sess.AskedSlot = string(slots.KindName)

	opening := o.phrase(ctx, sess, "", "Greet the customer warmly, introduce yourself as the Horizon Finance loan assistant, and ask for their name.", openingMessage)
	sess.Append("assistant", opening)

	o.log.Info("session started", "session", sess.ID)
	return Result{SessionID: sess.ID, Reply: opening, Stage: sess.Stage}, nil
}

// Advance processes one inbound user message for the session. Per-session
// mutual exclusion is provided by the store: message N's effects are fully
// committed before message N+1 begins.
func (o *Orchestrator) Advance(ctx context.Context, sessionID, message string) (Result, error) {
	sess, release, err := o.store.Acquire(sessionID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	sess.Append("user", message)

	if sess.Stage.Terminal() {
		reply := o.handleTerminal(ctx, sess, message)
		sess.Append("assistant", reply)
		return o.result(sess, reply), nil
	}

	parts, advanceErr := o.dispatch(ctx, sess, message)
	reply := strings.Join(parts, "\n\n")
	if reply != "" {
		sess.Append("assistant", reply)
	}
	return o.result(sess, reply), advanceErr
}

// dispatch walks the state machine until a stage produces an outward reply.
// A single inbound message may cross several stages (intake completion
// flows straight through verification and underwriting).
func (o *Orchestrator) dispatch(ctx context.Context, sess *loan.Session, message string) ([]string, error) {
	var parts []string

	for step := 0; step < 8; step++ {
		var (
			text string
			done bool
			err  error
		)

		switch sess.Stage {
		case loan.StageIntake:
			text, done, err = o.handleIntake(ctx, sess, message)
		case loan.StageVerification:
			text, done, err = o.handleVerification(ctx, sess)
		case loan.StageUnderwriting:
			text, done, err = o.handleUnderwriting(ctx, sess)
		case loan.StageSalaryCheck:
			text, done, err = o.handleSalaryCheck(ctx, sess, message)
		case loan.StageSanction:
			text, done, err = o.handleSanction(ctx, sess)
		default:
			return parts, fmt.Errorf("no handler for stage %s", sess.Stage)
		}

		if text != "" {
			parts = append(parts, text)
		}
		if err != nil {
			return parts, err
		}
		if done {
			return parts, nil
		}
	}

	return parts, errors.New("stage dispatch did not settle")
}

func (o *Orchestrator) handleIntake(ctx context.Context, sess *loan.Session, message string) (string, bool, error) {
	asked := slots.Kind(sess.AskedSlot)
	extraction := o.intake.Collect(ctx, sess.Log, message, asked)
	conflicts, progressed := o.applyExtraction(sess, extraction)

	missing := intake.Missing(sess.Applicant)
	if len(missing) == 0 {
		sess.AskedSlot = ""
		sess.AskAttempts = 0
		if err := o.transition(sess, loan.StageVerification); err != nil {
			return "", false, err
		}
		// Flow straight into verification; conflicts still reach the user.
		return strings.Join(conflicts, " "), false, nil
	}

	next := missing[0]
	var text string

	if next == asked && !progressed {
		sess.AskAttempts++
		if sess.AskAttempts >= intake.MaxAskAttempts {
			sess.AskAttempts = 0
			text = intake.Clarification(next)
		} else {
			text = o.askFor(ctx, sess, message, next)
		}
	} else {
		sess.AskedSlot = string(next)
		sess.AskAttempts = 0
		text = o.askFor(ctx, sess, message, next)
	}

	if len(conflicts) > 0 {
		text = strings.Join(conflicts, " ") + "\n\n" + text
	}
	return text, true, nil
}

// applyExtraction merges recognized slot values into the applicant record.
// Fields are set exactly once; a conflicting later value produces a
// clarification note instead of an overwrite.
func (o *Orchestrator) applyExtraction(sess *loan.Session, ext slots.Extraction) ([]string, bool) {
	var conflicts []string
	progressed := false
	app := &sess.Applicant

	if ext.Name != "" {
		if app.Name == "" {
			app.Name = ext.Name
			progressed = true
		} else if !strings.EqualFold(app.Name, ext.Name) {
			conflicts = append(conflicts, fmt.Sprintf("I have your name on record as %s; we'll keep that for this application.", app.Name))
		}
	}
	if ext.Purpose != "" {
		if app.Purpose == "" {
			app.Purpose = ext.Purpose
			progressed = true
		} else if app.Purpose != ext.Purpose {
			conflicts = append(conflicts, fmt.Sprintf("We'll keep the loan purpose as %s, as noted earlier.", app.Purpose))
		}
	}
	if ext.AmountOK {
		if app.Amount.IsZero() {
			app.Amount = ext.Amount
			progressed = true
		} else if app.Amount != ext.Amount {
			conflicts = append(conflicts, fmt.Sprintf("Your requested amount stays at %s; a fresh application would be needed to change it.", app.Amount))
		}
	}
	if ext.TenureOK {
		if app.TenureMonths == 0 {
			app.TenureMonths = ext.TenureMonths
			progressed = true
		} else if app.TenureMonths != ext.TenureMonths {
			conflicts = append(conflicts, fmt.Sprintf("The tenure stays at %d months, as noted earlier.", app.TenureMonths))
		}
	}
	if ext.Contact != "" {
		if app.Contact == "" {
			app.Contact = ext.Contact
			progressed = true
		} else if app.Contact != ext.Contact {
			conflicts = append(conflicts, fmt.Sprintf("We'll keep the mobile number ending %s for verification.", lastDigits(app.Contact)))
		}
	}
	if ext.SalaryOK && app.Salary == nil {
		salary := ext.Salary
		app.Salary = &salary
		progressed = true
	}

	return conflicts, progressed
}

func (o *Orchestrator) handleVerification(ctx context.Context, sess *loan.Session) (string, bool, error) {
	// The lookup completes before any session mutation is committed.
	res := o.verifier.Verify(ctx, sess.Applicant.Contact)

	if err := sess.SetVerification(res.Record); err != nil {
		return "", false, err
	}
	if sess.Applicant.AnnualRatePct == 0 {
		sess.Applicant.AnnualRatePct = res.AnnualRatePct
	}

	var text string
	if res.Record.IdentityConfirmed {
		text = o.phrase(ctx, sess, "",
			fmt.Sprintf("KYC verification succeeded. Credit score %d, pre-approved limit %s. Tell the customer verification is done and their application is being evaluated; be encouraging but do not promise approval.",
				res.Record.CreditScore, res.Record.PreApprovedLimit),
			kycSuccessMessage(res.Record.CreditScore, res.Record.PreApprovedLimit))
	} else {
		text = kycMissMessage
	}

	if err := o.transition(sess, loan.StageUnderwriting); err != nil {
		return "", false, err
	}
	return text, false, nil
}

func (o *Orchestrator) handleUnderwriting(ctx context.Context, sess *loan.Session) (string, bool, error) {
	if sess.Verification == nil {
		return "", false, errors.New("underwriting reached without verification record")
	}

	res, err := o.evaluator.Evaluate(underwriting.Input{
		Amount:           sess.Applicant.Amount,
		TenureMonths:     sess.Applicant.TenureMonths,
		CreditScore:      sess.Verification.CreditScore,
		PreApprovedLimit: sess.Verification.PreApprovedLimit,
		AnnualRatePct:    sess.Applicant.AnnualRatePct,
		Salary:           sess.Applicant.Salary,
	})
	if err != nil {
		// Input validation failed; the request is rejected but the session
		// keeps its state untouched.
		return "", false, err
	}

	decision := loan.Decision{
		Outcome:  res.Outcome,
		Reason:   res.Reason,
		EMI:      res.EMI,
		DTIRatio: res.DTIRatio,
	}
	if err := sess.RecordDecision(decision); err != nil {
		return "", false, err
	}

	switch res.Outcome {
	case loan.OutcomeApproved:
		if err := o.transition(sess, loan.StageSanction); err != nil {
			return "", false, err
		}
		return "", false, nil

	case loan.OutcomePendingSalary:
		if err := o.transition(sess, loan.StageSalaryCheck); err != nil {
			return "", false, err
		}
		sess.AskedSlot = string(slots.KindSalary)
		sess.AskAttempts = 0
		text := o.phrase(ctx, sess, "",
			fmt.Sprintf("The requested amount exceeds the pre-approved limit, so salary verification is needed. Required minimum salary is about %s. Politely ask for the monthly salary.", res.RequiredMinSalary),
			salaryRequestMessage(res.RequiredMinSalary))
		return text, true, nil

	default:
		if err := o.transition(sess, loan.StageRejected); err != nil {
			return "", false, err
		}
		return sanction.RejectionMessage(sess.Applicant.Name, res.Detail), true, nil
	}
}

func (o *Orchestrator) handleSalaryCheck(ctx context.Context, sess *loan.Session, message string) (string, bool, error) {
	extraction := o.intake.Collect(ctx, sess.Log, message, slots.KindSalary)
	if !extraction.SalaryOK {
		sess.AskAttempts++
		if sess.AskAttempts >= intake.MaxAskAttempts {
			sess.AskAttempts = 0
			return intake.Clarification(slots.KindSalary), true, nil
		}
		return o.askFor(ctx, sess, message, slots.KindSalary), true, nil
	}

	salary := extraction.Salary
	sess.Applicant.Salary = &salary
	sess.AskedSlot = ""
	sess.AskAttempts = 0

	if err := o.transition(sess, loan.StageUnderwriting); err != nil {
		return "", false, err
	}
	return "", false, nil
}

func (o *Orchestrator) handleSanction(ctx context.Context, sess *loan.Session) (string, bool, error) {
	// Render first; the session is only mutated once the artifact exists.
	ref, err := o.sanctions.Issue(ctx, sess)
	if err != nil {
		// Approval survives the failure; the stage stays SANCTION so the
		// next message retries generation.
		return sanctionRetryMessage, true, err
	}

	if err := sess.AttachArtifact(ref); err != nil {
		return "", false, err
	}
	if err := o.transition(sess, loan.StageComplete); err != nil {
		return "", false, err
	}

	letter := sanction.Letter{
		SessionID:     sess.ID,
		CustomerName:  sess.Applicant.Name,
		Amount:        sess.Applicant.Amount,
		TenureMonths:  sess.Applicant.TenureMonths,
		AnnualRatePct: sess.Applicant.AnnualRatePct,
		EMI:           sess.Decision.EMI,
	}
	return sanction.ApprovalMessage(letter), true, nil
}

func (o *Orchestrator) handleTerminal(ctx context.Context, sess *loan.Session, message string) string {
	hint := "The application was rejected. Answer follow-up questions politely; a fresh session is needed for a new application."
	fallback := terminalRejectedMessage
	if sess.Stage == loan.StageComplete {
		hint = "The application is complete and the sanction letter was issued. Answer follow-up questions politely."
		fallback = terminalCompleteMessage
	}
	return o.phrase(ctx, sess, message, hint, fallback)
}

// askFor phrases the question for a missing slot.
func (o *Orchestrator) askFor(ctx context.Context, sess *loan.Session, message string, k slots.Kind) string {
	return o.phrase(ctx, sess, message,
		fmt.Sprintf("Ask the customer for their %s. Ask naturally, one question only.", describeSlot(k)),
		intake.Question(k))
}

// phrase consults the text-generation service and falls back to the fixed
// template on any failure.
func (o *Orchestrator) phrase(ctx context.Context, sess *loan.Session, userMessage, promptContext, fallback string) string {
	if o.phraser == nil {
		return fallback
	}

	text, err := o.phraser.Phrase(ctx, ai.Prompt{
		Context:       promptContext,
		Stage:         sess.Stage,
		ApplicantName: sess.Applicant.Name,
		UserMessage:   userMessage,
		History:       sess.Log,
	})
	if err != nil {
		o.log.Warn("narration failed, using template", "session", sess.ID, "err", err)
		return fallback
	}
	return text
}

func (o *Orchestrator) result(sess *loan.Session, reply string) Result {
	return Result{
		SessionID:         sess.ID,
		Reply:             reply,
		Stage:             sess.Stage,
		ArtifactRef:       sess.ArtifactRef,
		DownloadAvailable: sess.ArtifactRef != "",
	}
}

func describeSlot(k slots.Kind) string {
	switch k {
	case slots.KindName:
		return "name"
	case slots.KindPurpose:
		return "loan purpose"
	case slots.KindAmount:
		return "desired loan amount"
	case slots.KindTenure:
		return "repayment tenure in months"
	case slots.KindContact:
		return "10-digit mobile number for KYC"
	case slots.KindSalary:
		return "monthly take-home salary"
	default:
		return string(k)
	}
}

func lastDigits(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
