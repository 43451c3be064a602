package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"chat-relay/internal/domain"
	"chat-relay/internal/integrations/openai"
)

const (
	DefaultModel         = "gpt-3.5-turbo"
	defaultMaxMessageLen = 4000
)

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatService relays one user message to the completion API per call. It
// keeps no conversation state.
type ChatService struct {
	llm           LLMClient
	model         string
	maxMessageLen int
}

type ChatInput struct {
	Message string
}

type ChatOutput struct {
	Response string
}

func NewChatService(llm LLMClient, model string, maxMessageLen int) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessageLen
	}
	return &ChatService{
		llm:           llm,
		model:         model,
		maxMessageLen: maxMessageLen,
	}, nil
}

// Model reports the model identifier sent upstream.
func (s *ChatService) Model() string {
	return s.model
}

func (s *ChatService) Reply(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if strings.TrimSpace(in.Message) == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if utf8.RuneCountInString(in.Message) > s.maxMessageLen {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	text, err := s.llm.Chat(ctx, s.model, buildPromptMessages(in.Message))
	if errors.Is(err, openai.ErrAPIKey) {
		return ChatOutput{}, newError(ErrorInternal, "api_key_error", err)
	}
	if err != nil {
		return ChatOutput{}, newError(ErrorUpstream, upstreamReason(err), err)
	}
	return ChatOutput{Response: text}, nil
}

// buildPromptMessages wraps the message as the single user turn of the
// request. No system prompt and no history are sent.
func buildPromptMessages(message string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: string(domain.RoleUser), Content: message},
	}
}

// upstreamReason classifies err for logs only.
func upstreamReason(err error) string {
	status, ok := upstreamStatusCode(err)
	switch {
	case !ok:
		return "openai_error"
	case status == http.StatusTooManyRequests:
		return "openai_rate_limited"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "openai_unauthorized"
	default:
		return fmt.Sprintf("openai_status_%d", status)
	}
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
