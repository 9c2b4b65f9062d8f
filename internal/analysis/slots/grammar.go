package slots

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/money"
)

// Kind names a single intake slot.
type Kind string

const (
	KindNone    Kind = ""
	KindName    Kind = "name"
	KindPurpose Kind = "purpose"
	KindAmount  Kind = "amount"
	KindTenure  Kind = "tenure"
	KindContact Kind = "contact"
	KindSalary  Kind = "salary"
)

// Extraction carries whichever slot values were recognized in one utterance.
// A zero Extraction is the explicit "unrecognized" outcome.
type Extraction struct {
	Name         string
	Purpose      string
	Amount       money.Amount
	AmountOK     bool
	TenureMonths int
	TenureOK     bool
	Contact      string
	Salary       money.Amount
	SalaryOK     bool
}

// Empty reports whether nothing was recognized.
func (e Extraction) Empty() bool {
	return e.Name == "" && e.Purpose == "" && !e.AmountOK &&
		!e.TenureOK && e.Contact == "" && !e.SalaryOK
}

var (
	contactPattern = regexp.MustCompile(`\b[6-9]\d{9}\b`)

	tenureYearsPattern  = regexp.MustCompile(`(\d+(?:\.5)?)\s*(?:years?|yrs?)\b`)
	tenureMonthsPattern = regexp.MustCompile(`(\d+)\s*(?:months?|mnths?|mos?)\b`)

	unitAmountPattern = regexp.MustCompile(`(?:rs\.?\s*|inr\s*)?(\d[\d,]*(?:\.\d+)?)\s*(lakhs?|lacs?|lakh|crores?|crore|cr|k|thousand)\b`)
	currencyPattern   = regexp.MustCompile(`(?:rs\.?|inr)\s*(\d[\d,]*(?:\.\d+)?)\b`)
	bareNumberPattern = regexp.MustCompile(`\b(\d[\d,]*(?:\.\d+)?)\b`)

	namePattern = regexp.MustCompile(`\b(?:my name is|i am|i'm|this is|call me|name's)\s+([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*){0,2})`)

	salaryContext = []string{"salary", "earn", "income", "take home", "per month", "monthly", "ctc"}
	amountContext = []string{"loan", "amount", "need", "borrow", "want", "looking for", "require"}
)

var unitMultipliers = map[string]int64{
	"k":        1_000,
	"thousand": 1_000,
	"lakh":     100_000,
	"lakhs":    100_000,
	"lac":      100_000,
	"lacs":     100_000,
	"cr":       10_000_000,
	"crore":    10_000_000,
	"crores":   10_000_000,
}

// purposeBuckets maps canonical loan purposes to the phrases that signal them.
var purposeBuckets = map[string][]string{
	"wedding":            {"wedding", "marriage", "shaadi"},
	"education":          {"education", "college", "tuition", "studies", "course", "university"},
	"medical":            {"medical", "hospital", "surgery", "treatment", "health"},
	"home renovation":    {"renovation", "renovate", "home improvement", "repair my house", "interiors"},
	"travel":             {"travel", "vacation", "holiday", "trip", "honeymoon"},
	"business":           {"business", "shop", "startup", "working capital", "expand"},
	"vehicle":            {"car", "bike", "vehicle", "two wheeler", "scooter"},
	"debt consolidation": {"consolidat", "pay off", "repay", "credit card dues", "existing loan"},
	"personal":           {"personal use", "personal needs", "personal expenses"},
}

// Analyze scans free text for slot values. asked biases bare values (a lone
// number, a lone word) toward the slot the dialogue just requested.
func Analyze(text string, asked Kind) Extraction {
	var out Extraction

	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return out
	}

	// Contact first: a 10-digit number must never be read as an amount.
	if m := contactPattern.FindString(normalized); m != "" {
		out.Contact = m
		normalized = blank(normalized, m)
	}

	normalized = extractTenure(normalized, asked, &out)
	normalized = extractMoney(normalized, asked, &out)

	if name, ok := extractName(normalized, asked); ok {
		out.Name = name
	}
	if purpose, ok := extractPurpose(normalized); ok {
		out.Purpose = purpose
	}

	return out
}

func extractTenure(text string, asked Kind, out *Extraction) string {
	if m := tenureYearsPattern.FindStringSubmatch(text); m != nil {
		if amt, err := money.Parse(m[1]); err == nil {
			// Half-year tenures resolve cleanly: 2.5 years -> 30 months.
			out.TenureMonths = int(int64(amt) * 12 / 100)
			out.TenureOK = out.TenureMonths > 0
			return blank(text, m[0])
		}
	}
	if m := tenureMonthsPattern.FindStringSubmatch(text); m != nil {
		if amt, err := money.Parse(m[1]); err == nil {
			out.TenureMonths = int(amt.Rupees())
			out.TenureOK = out.TenureMonths > 0
			return blank(text, m[0])
		}
	}

	// A bare small number answers a direct tenure question ("24", "36").
	if asked == KindTenure {
		if m := bareNumberPattern.FindStringSubmatch(text); m != nil {
			if amt, err := money.Parse(m[1]); err == nil && amt > 0 && amt < money.FromRupees(600) {
				out.TenureMonths = int(amt.Rupees())
				out.TenureOK = out.TenureMonths > 0
				return blank(text, m[0])
			}
		}
	}
	return text
}

func extractMoney(text string, asked Kind, out *Extraction) string {
	amount, matched, ok := matchAmount(text)
	if !ok {
		return text
	}

	target := KindAmount
	switch {
	case containsAny(text, salaryContext):
		target = KindSalary
	case containsAny(text, amountContext):
		target = KindAmount
	case asked == KindSalary || asked == KindAmount:
		// A bare figure answers whichever money slot was just requested.
		target = asked
	}

	if target == KindSalary {
		out.Salary = amount
		out.SalaryOK = true
	} else {
		out.Amount = amount
		out.AmountOK = true
	}
	return blank(text, matched)
}

func matchAmount(text string) (money.Amount, string, bool) {
	if m := unitAmountPattern.FindStringSubmatch(text); m != nil {
		parsed, err := money.Parse(m[1])
		if err == nil {
			mult := unitMultipliers[m[2]]
			return money.Amount(int64(parsed) * mult), m[0], true
		}
	}
	if m := currencyPattern.FindStringSubmatch(text); m != nil {
		parsed, err := money.Parse(m[1])
		if err == nil {
			return parsed, m[0], true
		}
	}
	if m := bareNumberPattern.FindStringSubmatch(text); m != nil {
		parsed, err := money.Parse(m[1])
		// Tiny bare numbers are more plausibly tenure or chit-chat.
		if err == nil && parsed >= money.FromRupees(1000) {
			return parsed, m[0], true
		}
	}
	return 0, "", false
}

// nameStopwords rejects connective words that the trigger phrases can drag
// in ("call me on 98...", "i am looking for a loan").
var nameStopwords = map[string]bool{
	"on": true, "at": true, "back": true, "later": true, "looking": true,
	"interested": true, "not": true, "a": true, "the": true, "here": true,
}

// bareReplyFillers are chit-chat words that a short reply to a name question
// is made of when the customer has not actually given a name.
var bareReplyFillers = map[string]bool{
	"hmm": true, "huh": true, "uh": true, "um": true, "ok": true, "okay": true,
	"yes": true, "no": true, "what": true, "why": true, "hello": true,
	"hi": true, "hey": true, "sure": true, "thanks": true, "please": true,
}

func extractName(text string, asked Kind) (string, bool) {
	if m := namePattern.FindStringSubmatch(text); m != nil {
		fields := strings.Fields(m[1])
		if len(fields) > 0 && !nameStopwords[fields[0]] {
			return titleCase(m[1]), true
		}
	}

	if asked != KindName {
		return "", false
	}

	// When the name was just asked for, accept a short bare reply.
	fields := strings.Fields(strings.Trim(text, " .!,?"))
	if len(fields) == 0 || len(fields) > 3 {
		return "", false
	}
	for _, f := range fields {
		if strings.ContainsAny(f, "0123456789") || bareReplyFillers[f] {
			return "", false
		}
	}
	return titleCase(strings.Join(fields, " ")), true
}

// purposeOrder fixes the bucket scan order so score ties always resolve to
// the same purpose for the same utterance.
var purposeOrder = func() []string {
	order := make([]string, 0, len(purposeBuckets))
	for purpose := range purposeBuckets {
		order = append(order, purpose)
	}
	sort.Strings(order)
	return order
}()

func extractPurpose(text string) (string, bool) {
	best := ""
	bestScore := 0
	for _, purpose := range purposeOrder {
		score := 0
		for _, phrase := range purposeBuckets[purpose] {
			if strings.Contains(text, phrase) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = purpose
		}
	}
	return best, best != ""
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func blank(text, match string) string {
	return strings.Replace(text, match, " ", 1)
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}
