package ai

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
)

const historyLimit = 10

const assistantCharter = `You are a professional loan sales assistant at Horizon Finance Limited, an Indian NBFC.

Guidelines:
1. Be professional, warm, and concise; two to three sentences.
2. Use Indian English and Indian currency conventions (Rs., lakhs).
3. Never make or promise credit decisions - underwriting handles those.
4. Never ask for information that has already been provided.
5. Always say "subject to verification" rather than promising approval.`

func buildSystemPrompt(p Prompt) string {
	var b strings.Builder
	b.WriteString(assistantCharter)

	b.WriteString("\n\nCurrent situation: ")
	b.WriteString(p.Context)

	b.WriteString(fmt.Sprintf("\nJourney stage: %s", p.Stage))
	if p.ApplicantName != "" {
		b.WriteString(fmt.Sprintf("\nCustomer name: %s", p.ApplicantName))
	}

	return b.String()
}

func historyMessages(turns []loan.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	start := 0
	if len(turns) > historyLimit {
		start = len(turns) - historyLimit
	}

	history := make([]*schema.Message, 0, len(turns)-start)
	for _, turn := range turns[start:] {
		switch turn.Role {
		case "user":
			history = append(history, schema.UserMessage(turn.Text))
		case "assistant":
			history = append(history, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return history
}
