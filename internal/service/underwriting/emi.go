package underwriting

import (
	"math"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/money"
)

// EMI computes the equated monthly installment for an amortized loan:
// P * r * (1+r)^n / ((1+r)^n - 1) with r the monthly rate and n the tenure
// in months. The rate factor is computed in float64; the principal stays in
// fixed point and the result is rounded to the paisa exactly once.
func EMI(principal money.Amount, annualRatePct float64, tenureMonths int) money.Amount {
	if principal <= 0 || tenureMonths <= 0 {
		return 0
	}
	if annualRatePct <= 0 {
		// Interest-free edge: straight division across the tenure.
		return money.Amount(math.Round(float64(principal) / float64(tenureMonths)))
	}

	r := annualRatePct / 1200
	factor := math.Pow(1+r, float64(tenureMonths))
	return money.Amount(math.Round(float64(principal) * r * factor / (factor - 1)))
}

// DTIRatio is EMI over monthly salary. A non-positive salary yields a ratio
// above any sane policy cap so the affordability rule fails closed.
func DTIRatio(emi, salary money.Amount) float64 {
	if salary <= 0 {
		return 1
	}
	return float64(emi) / float64(salary)
}

// TotalPayable is the sum of all installments over the tenure.
func TotalPayable(emi money.Amount, tenureMonths int) money.Amount {
	return emi * money.Amount(tenureMonths)
}

// TotalInterest is the cost of the loan above the principal.
func TotalInterest(principal, emi money.Amount, tenureMonths int) money.Amount {
	total := TotalPayable(emi, tenureMonths)
	if total < principal {
		return 0
	}
	return total - principal
}

// RateForScore suggests the nominal annual rate for a credit band.
func RateForScore(creditScore int) float64 {
	switch {
	case creditScore >= 800:
		return 10.5
	case creditScore >= 750:
		return 11.0
	case creditScore >= 700:
		return 12.0
	case creditScore >= 650:
		return 14.0
	default:
		return 16.0
	}
}

// MaxEligibleLoan inverts the EMI formula: the largest principal whose EMI
// stays within maxDTI of the monthly salary.
func MaxEligibleLoan(salary money.Amount, annualRatePct float64, tenureMonths int, maxDTI float64) money.Amount {
	if salary <= 0 || tenureMonths <= 0 || maxDTI <= 0 {
		return 0
	}

	maxEMI := float64(salary) * maxDTI
	if annualRatePct <= 0 {
		return money.Amount(math.Round(maxEMI * float64(tenureMonths)))
	}

	r := annualRatePct / 1200
	factor := math.Pow(1+r, float64(tenureMonths))
	return money.Amount(math.Round(maxEMI * (factor - 1) / (r * factor)))
}
