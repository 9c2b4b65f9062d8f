package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/config"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
)

// Prompt carries everything the narrator needs to phrase one reply. The
// Context field is an instruction, not user content: "ask for the tenure",
// "narrate the approval", and so on.
type Prompt struct {
	Context       string
	Stage         loan.Stage
	ApplicantName string
	UserMessage   string
	History       []loan.Turn
}

// Service phrases questions and narrates outcomes through the configured
// chat model. It is consulted for wording only, never for decisions.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	log       *slog.Logger
}

// NewService compiles the narration chain.
func NewService(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile narration chain: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{chatModel: chatModel, chain: runnable, log: log}, nil
}

// Phrase generates one conversational reply. Errors bubble up so the caller
// can fall back to its fixed templates instead of stalling the conversation.
func (s *Service) Phrase(ctx context.Context, p Prompt) (string, error) {
	query := strings.TrimSpace(p.UserMessage)
	if query == "" {
		query = "(the customer has just joined the conversation)"
	}

	response, err := s.chain.Invoke(ctx, map[string]any{
		"system":  buildSystemPrompt(p),
		"history": historyMessages(p.History),
		"query":   query,
	})
	if err != nil {
		return "", fmt.Errorf("narration chain: %w", err)
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", fmt.Errorf("narration chain returned empty content")
	}

	s.log.Debug("narration generated", "stage", string(p.Stage), "length", len(text))
	return text, nil
}

// ChatModel exposes the underlying model so the intake extractor can reuse
// the same connection.
func (s *Service) ChatModel() model.ChatModel {
	return s.chatModel
}
