package verification

import (
	"context"
	"log/slog"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/customer"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/underwriting"
)

// Stage gathers identity and credit facts for an applicant. It makes no
// approve/reject decision of its own; a lookup miss is recorded as an
// unconfirmed identity with a zero score and the evaluator rejects it
// downstream with the uniform reason.
type Stage struct {
	directory customer.Directory
	log       *slog.Logger
}

// New builds a verification stage over the given bureau directory.
func New(directory customer.Directory, log *slog.Logger) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{directory: directory, log: log}
}

// Result carries the gathered facts plus narration hints.
type Result struct {
	Record        loan.Verification
	CustomerName  string
	AnnualRatePct float64
}

// Verify looks up the contact identifier and normalizes the outcome.
// Identity confirmation mirrors the lookup result directly; there is no
// independent check beyond presence in the bureau.
func (s *Stage) Verify(_ context.Context, contact string) Result {
	rec, found := s.directory.Lookup(contact)
	if !found {
		s.log.Info("bureau lookup miss", "contact", contact)
		return Result{
			Record: loan.Verification{IdentityConfirmed: false, CreditScore: 0, PreApprovedLimit: 0},
			// The evaluator still runs so rejection reasons stay uniform.
			AnnualRatePct: underwriting.RateForScore(0),
		}
	}

	s.log.Info("bureau lookup hit",
		"contact", contact,
		"creditScore", rec.CreditScore,
		"preApprovedLimit", rec.PreApprovedLimit.String())

	return Result{
		Record: loan.Verification{
			IdentityConfirmed: rec.PhoneVerified && rec.AddressVerified,
			CreditScore:       rec.CreditScore,
			PreApprovedLimit:  rec.PreApprovedLimit,
		},
		CustomerName:  rec.Name,
		AnnualRatePct: underwriting.RateForScore(rec.CreditScore),
	}
}
