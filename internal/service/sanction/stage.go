package sanction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/underwriting"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/money"
)

// ErrRenderFailed wraps document-generation failures. The caller keeps the
// session in SANCTION and may retry; approval status is never lost to a
// rendering failure.
var ErrRenderFailed = errors.New("sanction letter generation failed")

// Letter is the data handed to the document-generation service.
type Letter struct {
	SessionID     string
	CustomerName  string
	Amount        money.Amount
	TenureMonths  int
	AnnualRatePct float64
	EMI           money.Amount
}

// Renderer is the external document-generation contract.
type Renderer interface {
	Render(ctx context.Context, letter Letter) (string, error)
}

// Stage issues sanction artifacts for approved applications.
type Stage struct {
	renderer Renderer
	log      *slog.Logger
}

// New builds the sanction stage over a renderer.
func New(renderer Renderer, log *slog.Logger) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{renderer: renderer, log: log}
}

// Issue renders the sanction letter for an approved session and returns the
// artifact handle.
func (s *Stage) Issue(ctx context.Context, sess *loan.Session) (string, error) {
	name := sess.Applicant.Name
	if name == "" {
		name = "Valued Customer"
	}

	letter := Letter{
		SessionID:     sess.ID,
		CustomerName:  name,
		Amount:        sess.Applicant.Amount,
		TenureMonths:  sess.Applicant.TenureMonths,
		AnnualRatePct: sess.Applicant.AnnualRatePct,
		EMI:           sess.Decision.EMI,
	}

	ref, err := s.renderer.Render(ctx, letter)
	if err != nil {
		s.log.Error("letter render failed", "session", sess.ID, "err", err)
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	s.log.Info("sanction letter issued", "session", sess.ID, "artifact", ref)
	return ref, nil
}

// ApprovalMessage is the fixed congratulation template used when the
// narrator is unavailable.
func ApprovalMessage(letter Letter) string {
	total := underwriting.TotalPayable(letter.EMI, letter.TenureMonths)
	interest := underwriting.TotalInterest(letter.Amount, letter.EMI, letter.TenureMonths)

	return fmt.Sprintf(`Congratulations, %s! Your personal loan has been APPROVED.

Loan details:
- Loan amount: %s
- Interest rate: %.1f%% per annum
- Tenure: %d months
- Monthly EMI: %s
- Total interest: %s
- Total payable: %s

Your sanction letter has been generated and is ready for download. Thank you for choosing Horizon Finance Limited!`,
		letter.CustomerName, letter.Amount, letter.AnnualRatePct, letter.TenureMonths,
		letter.EMI, interest, total)
}

// RejectionMessage is the fixed regret template.
func RejectionMessage(customerName, detail string) string {
	if customerName == "" {
		customerName = "Valued Customer"
	}
	return fmt.Sprintf(`Dear %s, we regret that we are unable to approve your loan application at this time.

Reason: %s

You may review your credit profile, consider a lower amount, or contact our support team for details. Thank you for considering Horizon Finance Limited.`,
		customerName, detail)
}
