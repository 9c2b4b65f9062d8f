package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value in paise (1/100 rupee). Keeping currency in
// integer minor units avoids float rounding drift across the decision path.
type Amount int64

// FromRupees converts whole rupees to an Amount.
func FromRupees(r int64) Amount {
	return Amount(r * 100)
}

// Parse reads a plain decimal rupee string such as "12345" or "12345.67".
// At most two fractional digits are accepted.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}

	rupees, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	paise := int64(0)
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		paise, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
	}

	return Amount(rupees*100 + paise), nil
}

// Scale multiplies the amount by a factor, rounding to the nearest paisa.
// Used for policy multiples such as the pre-approved limit ceiling.
func (a Amount) Scale(factor float64) Amount {
	return Amount(math.Round(float64(a) * factor))
}

// Rupees returns the whole-rupee part, truncating paise.
func (a Amount) Rupees() int64 {
	return int64(a) / 100
}

// Float returns the value in rupees as a float64 for ratio computations.
// Currency values themselves are never stored back from this form.
func (a Amount) Float() float64 {
	return float64(a) / 100
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a == 0
}

// String renders the amount with Indian digit grouping, e.g. "Rs. 1,23,456.78".
func (a Amount) String() string {
	neg := a < 0
	v := int64(a)
	if neg {
		v = -v
	}

	rupees := v / 100
	paise := v % 100

	grouped := groupIndian(rupees)
	if neg {
		return fmt.Sprintf("Rs. -%s.%02d", grouped, paise)
	}
	return fmt.Sprintf("Rs. %s.%02d", grouped, paise)
}

// Compact renders large amounts in lakh/crore shorthand, matching how the
// assistant narrates figures to applicants.
func (a Amount) Compact() string {
	r := a.Float()
	switch {
	case r >= 1e7:
		return fmt.Sprintf("Rs. %.2f Cr", r/1e7)
	case r >= 1e5:
		return fmt.Sprintf("Rs. %.2f L", r/1e5)
	default:
		return a.String()
	}
}

// groupIndian applies the 3-then-2 digit grouping of the Indian numbering
// system: 1234567 -> "12,34,567".
func groupIndian(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	head := s[:len(s)-3]
	tail := s[len(s)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	parts = append(parts, tail)
	return strings.Join(parts, ",")
}
