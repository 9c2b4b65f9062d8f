package sanction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/underwriting"
)

const (
	nbfcName         = "Horizon Finance Limited"
	nbfcTagline      = "Your Trusted Financial Partner"
	nbfcAddress      = "Corporate Office: Tower A, Financial District, Mumbai - 400051"
	nbfcRegistration = "RBI Registration No: N-13.02215"
)

// LetterRenderer writes sanction letters to the local filesystem and returns
// the file path as the artifact handle.
type LetterRenderer struct {
	dir string
	now func() time.Time
}

// NewLetterRenderer creates the output directory if needed.
func NewLetterRenderer(dir string) (*LetterRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create letter directory: %w", err)
	}
	return &LetterRenderer{dir: dir, now: time.Now}, nil
}

// Render writes the formatted letter and returns its path.
func (r *LetterRenderer) Render(_ context.Context, letter Letter) (string, error) {
	if letter.CustomerName == "" || letter.Amount <= 0 || letter.TenureMonths <= 0 || letter.SessionID == "" {
		return "", fmt.Errorf("incomplete letter data")
	}

	path := filepath.Join(r.dir, fmt.Sprintf("sanction_letter_%s.txt", shortID(letter.SessionID)))
	if err := os.WriteFile(path, []byte(r.format(letter)), 0o644); err != nil {
		return "", fmt.Errorf("write letter: %w", err)
	}
	return path, nil
}

func (r *LetterRenderer) format(letter Letter) string {
	total := underwriting.TotalPayable(letter.EMI, letter.TenureMonths)
	interest := underwriting.TotalInterest(letter.Amount, letter.EMI, letter.TenureMonths)
	issued := r.now().Format("02 January 2006")

	return fmt.Sprintf(`%s
%s
%s
%s

                        LOAN SANCTION LETTER

Date: %s
Reference: HFL/%s

Dear %s,

We are pleased to inform you that your personal loan application has been
sanctioned on the following terms:

    Sanctioned Amount   : %s
    Interest Rate       : %.2f%% per annum (fixed)
    Tenure              : %d months
    Monthly EMI         : %s
    Total Interest      : %s
    Total Payable       : %s

This sanction is valid for 30 days from the date of issue and is subject to
execution of the loan agreement and our standard terms and conditions.

Warm regards,

Credit Operations
%s
`,
		nbfcName, nbfcTagline, nbfcAddress, nbfcRegistration,
		issued, shortID(letter.SessionID), letter.CustomerName,
		letter.Amount, letter.AnnualRatePct, letter.TenureMonths,
		letter.EMI, interest, total, nbfcName)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
