package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/analysis/slots"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/money"
)

// MaxAskAttempts bounds the re-prompt loop for a single slot. After this
// many unparseable replies the stage escalates to a clarification message.
const MaxAskAttempts = 3

// Service extracts applicant slots from free-text utterances. When a chat
// model is available it runs a structured-JSON extraction chain first and
// falls back to the pattern grammar; without a model the grammar runs alone.
type Service struct {
	extractor    compose.Runnable[map[string]any, *schema.Message]
	historyLimit int
	log          *slog.Logger
}

// NewService compiles the extraction chain. A nil chatModel is accepted and
// leaves the service in grammar-only mode.
func NewService(ctx context.Context, chatModel model.ChatModel, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	svc := &Service{historyLimit: 6, log: log}
	if chatModel == nil {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(extractorSystemPrompt),
		schema.UserMessage(extractorUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile slot extraction chain: %w", err)
	}

	svc.extractor = runnable
	return svc, nil
}

// Collect extracts slot values from one utterance. asked biases bare values
// toward the slot the dialogue just requested.
func (s *Service) Collect(ctx context.Context, history []loan.Turn, utterance string, asked slots.Kind) slots.Extraction {
	if s.extractor == nil {
		return slots.Analyze(utterance, asked)
	}

	msg, err := s.extractor.Invoke(ctx, map[string]any{
		"history":   formatHistory(history, s.historyLimit),
		"utterance": strings.TrimSpace(utterance),
		"asked":     string(asked),
	})
	if err != nil {
		s.log.Warn("slot extraction chain failed, using grammar", "err", err)
		return slots.Analyze(utterance, asked)
	}

	extraction, err := parseExtractorOutput(msg.Content)
	if err != nil {
		s.log.Warn("slot extraction output unparseable, using grammar", "err", err)
		return slots.Analyze(utterance, asked)
	}

	if extraction.Empty() {
		// The model found nothing; the grammar gets the final word.
		return slots.Analyze(utterance, asked)
	}
	return extraction
}

// Missing returns the required slots not yet filled, in asking order.
func Missing(app loan.Applicant) []slots.Kind {
	var missing []slots.Kind
	if app.Name == "" {
		missing = append(missing, slots.KindName)
	}
	if app.Purpose == "" {
		missing = append(missing, slots.KindPurpose)
	}
	if app.Amount.IsZero() {
		missing = append(missing, slots.KindAmount)
	}
	if app.TenureMonths == 0 {
		missing = append(missing, slots.KindTenure)
	}
	if app.Contact == "" {
		missing = append(missing, slots.KindContact)
	}
	return missing
}

// Question is the fixed prompt for a slot, used when the narrator is
// unavailable.
func Question(k slots.Kind) string {
	switch k {
	case slots.KindName:
		return "To get started, may I know your name please?"
	case slots.KindPurpose:
		return "What would the loan be for - a wedding, education, travel, or something else?"
	case slots.KindAmount:
		return "How much would you like to borrow? You can say it in rupees or lakhs."
	case slots.KindTenure:
		return "Over what period would you like to repay? We offer 12 to 60 months."
	case slots.KindContact:
		return "Could you share your 10-digit mobile number for KYC verification?"
	case slots.KindSalary:
		return "Could you share your monthly take-home salary so we can check affordability?"
	default:
		return "Could you tell me a bit more about your loan requirement?"
	}
}

// Clarification is the escalated prompt after repeated unparseable replies.
func Clarification(k slots.Kind) string {
	switch k {
	case slots.KindAmount:
		return "I couldn't catch the loan amount. Please give a figure such as \"3 lakhs\" or \"Rs. 250000\"."
	case slots.KindTenure:
		return "I couldn't catch the tenure. Please give a period such as \"24 months\" or \"3 years\"."
	case slots.KindContact:
		return "I couldn't catch your mobile number. Please type the 10 digits, for example 9876543210."
	case slots.KindSalary:
		return "I couldn't catch your salary. Please give a monthly figure such as \"60000\" or \"Rs. 45,000\"."
	case slots.KindName:
		return "Sorry, I didn't catch your name. Could you type just your name, for example \"Rahul Sharma\"?"
	case slots.KindPurpose:
		return "Sorry, I didn't catch the purpose. A single word like \"wedding\", \"education\" or \"travel\" works."
	default:
		return "Sorry, I didn't follow that. Could you rephrase?"
	}
}

type extractorPayload struct {
	Name         *string  `json:"customer_name"`
	Purpose      *string  `json:"purpose"`
	LoanAmount   *float64 `json:"loan_amount"`
	TenureMonths *float64 `json:"tenure_months"`
	PhoneNumber  *string  `json:"phone_number"`
	Salary       *float64 `json:"salary"`
}

// parseExtractorOutput reads the model's JSON object, tolerating prose
// around it the same way the rest of the stack treats model output.
func parseExtractorOutput(content string) (slots.Extraction, error) {
	var out slots.Extraction

	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return out, fmt.Errorf("missing json object")
	}

	payload := extractorPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return out, err
	}

	if payload.Name != nil && strings.TrimSpace(*payload.Name) != "" {
		out.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Purpose != nil && strings.TrimSpace(*payload.Purpose) != "" {
		out.Purpose = strings.ToLower(strings.TrimSpace(*payload.Purpose))
	}
	if payload.LoanAmount != nil && *payload.LoanAmount > 0 {
		out.Amount = money.Amount(math.Round(*payload.LoanAmount * 100))
		out.AmountOK = true
	}
	if payload.TenureMonths != nil && *payload.TenureMonths > 0 {
		out.TenureMonths = int(math.Round(*payload.TenureMonths))
		out.TenureOK = true
	}
	if payload.PhoneNumber != nil {
		digits := strings.Map(keepDigits, *payload.PhoneNumber)
		if len(digits) == 12 && strings.HasPrefix(digits, "91") {
			digits = digits[2:]
		}
		if len(digits) == 10 {
			out.Contact = digits
		}
	}
	if payload.Salary != nil && *payload.Salary > 0 {
		out.Salary = money.Amount(math.Round(*payload.Salary * 100))
		out.SalaryOK = true
	}

	return out, nil
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

func formatHistory(turns []loan.Turn, limit int) string {
	if len(turns) == 0 {
		return "(no prior conversation)"
	}

	start := len(turns) - limit
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for i := start; i < len(turns); i++ {
		turn := turns[i]
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(text)
	}
	if b.Len() == 0 {
		return "(no prior conversation)"
	}
	return b.String()
}

const extractorSystemPrompt = `You extract loan application details from an Indian customer's chat messages.
Respond with ONLY a JSON object, no other text, with these fields:
customer_name (string or null), purpose (string or null), loan_amount (number in rupees or null), tenure_months (number or null), phone_number (10-digit string or null), salary (monthly rupees or null).
Rules: only extract what is explicitly stated; convert lakhs to absolute rupees (5 lakh = 500000); convert years to months (3 years = 36); null for anything not mentioned.`

const extractorUserPrompt = `Recent conversation:
{history}

Latest customer message:
{utterance}

Slot just asked for (may be empty): {asked}

Return the JSON object.`
