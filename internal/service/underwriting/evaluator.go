package underwriting

import (
	"errors"
	"fmt"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/money"
)

var (
	// ErrInvalidTenure marks tenure input that cannot be evaluated. This is
	// an input-validation failure, not a credit decision.
	ErrInvalidTenure = errors.New("tenure must be a positive number of months")
	// ErrInvalidAmount marks a non-positive requested amount.
	ErrInvalidAmount = errors.New("requested amount must be positive")
)

// Reason strings are stable identifiers; the narrator layer turns them into
// conversational prose.
const (
	ReasonLowCreditScore  = "credit score below threshold"
	ReasonWithinLimit     = "within pre-approved limit"
	ReasonSalaryVerified  = "approved with salary verification"
	ReasonEMIUnaffordable = "EMI exceeds affordability threshold"
	ReasonOverMaxMultiple = "requested amount exceeds maximum eligible multiple"
	ReasonSalaryRequired  = "salary verification required"
)

// Policy carries the lending thresholds. They are configuration, not
// algorithm: deployments may tighten or relax them without code changes.
type Policy struct {
	MinCreditScore int
	MaxMultiplier  float64
	MaxDTIRatio    float64
	// AnnualRatePct is the nominal annual interest rate used for EMI
	// computation when the input does not carry a suggested rate.
	AnnualRatePct float64
}

// DefaultPolicy returns the standard personal-loan policy.
func DefaultPolicy() Policy {
	return Policy{
		MinCreditScore: 700,
		MaxMultiplier:  2.0,
		MaxDTIRatio:    0.50,
		AnnualRatePct:  11.5,
	}
}

// Input is everything the evaluator needs. Salary is nil until collected.
type Input struct {
	Amount           money.Amount
	TenureMonths     int
	CreditScore      int
	PreApprovedLimit money.Amount
	AnnualRatePct    float64
	Salary           *money.Amount
}

// Result is the verdict plus the figures that justify it.
type Result struct {
	Outcome           loan.Outcome
	Reason            string
	Detail            string
	EMI               money.Amount
	DTIRatio          float64
	RequiredMinSalary money.Amount
	MaxEligible       money.Amount
}

// Evaluator applies the deterministic decision procedure. It is a pure
// function of its inputs: no side effects, no hidden state.
type Evaluator struct {
	policy Policy
}

// NewEvaluator builds an evaluator for the given policy.
func NewEvaluator(policy Policy) Evaluator {
	return Evaluator{policy: policy}
}

// Policy exposes the active thresholds, mainly for narration.
func (e Evaluator) Policy() Policy {
	return e.policy
}

// Evaluate runs the decision procedure. Rule order encodes precedence: the
// credit gate wins over everything, then the pre-approved limit, then the
// salary-verified band, then the hard ceiling.
func (e Evaluator) Evaluate(in Input) (Result, error) {
	if in.TenureMonths <= 0 {
		return Result{}, ErrInvalidTenure
	}
	if in.Amount <= 0 {
		return Result{}, ErrInvalidAmount
	}

	rate := in.AnnualRatePct
	if rate <= 0 {
		rate = e.policy.AnnualRatePct
	}

	maxEligible := in.PreApprovedLimit.Scale(e.policy.MaxMultiplier)

	if in.CreditScore < e.policy.MinCreditScore {
		return Result{
			Outcome:     loan.OutcomeRejected,
			Reason:      ReasonLowCreditScore,
			Detail:      fmt.Sprintf("credit score %d is below the minimum required score of %d", in.CreditScore, e.policy.MinCreditScore),
			MaxEligible: maxEligible,
		}, nil
	}

	emi := EMI(in.Amount, rate, in.TenureMonths)

	if in.Amount <= in.PreApprovedLimit {
		return Result{
			Outcome:     loan.OutcomeApproved,
			Reason:      ReasonWithinLimit,
			Detail:      fmt.Sprintf("%s is within the pre-approved limit of %s", in.Amount, in.PreApprovedLimit),
			EMI:         emi,
			MaxEligible: maxEligible,
		}, nil
	}

	if in.Amount <= maxEligible {
		if in.Salary == nil {
			return Result{
				Outcome:           loan.OutcomePendingSalary,
				Reason:            ReasonSalaryRequired,
				Detail:            fmt.Sprintf("amounts between %s and %s require income proof", in.PreApprovedLimit, maxEligible),
				EMI:               emi,
				RequiredMinSalary: minRequiredSalary(emi, e.policy.MaxDTIRatio),
				MaxEligible:       maxEligible,
			}, nil
		}

		dti := DTIRatio(emi, *in.Salary)
		if dti <= e.policy.MaxDTIRatio {
			return Result{
				Outcome:     loan.OutcomeApproved,
				Reason:      ReasonSalaryVerified,
				Detail:      fmt.Sprintf("EMI of %s is %.1f%% of monthly salary, within the %.0f%% limit", emi, dti*100, e.policy.MaxDTIRatio*100),
				EMI:         emi,
				DTIRatio:    dti,
				MaxEligible: maxEligible,
			}, nil
		}

		return Result{
			Outcome:     loan.OutcomeRejected,
			Reason:      ReasonEMIUnaffordable,
			Detail:      fmt.Sprintf("EMI of %s is %.1f%% of monthly salary, above the %.0f%% limit", emi, dti*100, e.policy.MaxDTIRatio*100),
			EMI:         emi,
			DTIRatio:    dti,
			MaxEligible: maxEligible,
		}, nil
	}

	return Result{
		Outcome:     loan.OutcomeRejected,
		Reason:      ReasonOverMaxMultiple,
		Detail:      fmt.Sprintf("%s exceeds the maximum eligible amount of %s (%.1fx pre-approved limit)", in.Amount, maxEligible, e.policy.MaxMultiplier),
		MaxEligible: maxEligible,
	}, nil
}

func minRequiredSalary(emi money.Amount, maxDTI float64) money.Amount {
	if maxDTI <= 0 {
		return 0
	}
	return emi.Scale(1 / maxDTI)
}
