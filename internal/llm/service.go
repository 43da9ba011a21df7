package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/RichardoC/agroai/internal/assistant"
	"github.com/RichardoC/agroai/internal/db"
	"github.com/RichardoC/agroai/internal/events"
	"github.com/RichardoC/agroai/internal/metrics"
	"github.com/RichardoC/agroai/internal/models"
	"github.com/RichardoC/agroai/internal/oceandata"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	BackendKeyword = "keyword"
	BackendOpenAI  = "openai"

	historySize       = 10
	generationTimeout = 30 * time.Second
	titleLength       = 50
)

const systemPrompt = `You are AgroAI, an assistant for ocean data analysis and marine ecosystem research.
Answer questions about ocean parameters such as temperature, salinity, pH and dissolved oxygen,
and about marine ecosystems. Keep answers short and practical.`

type ModelConfig struct {
	Backend string
	BaseURL string
	Model   string
	Token   string
	Seed    int64
}

// NewModel builds the response model for the configured backend.
func NewModel(cfg ModelConfig) (llms.Model, error) {
	switch cfg.Backend {
	case "", BackendKeyword:
		faker := gofakeit.New(cfg.Seed)
		return assistant.NewModel(assistant.NewProcessor(faker, oceandata.NewAnalyzer(faker, nil))), nil
	case BackendOpenAI:
		llm, err := openai.New(
			openai.WithToken(cfg.Token),
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai backend: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown assistant backend %q", cfg.Backend)
	}
}

type Service struct {
	model   llms.Model
	db      *db.Database
	metrics *metrics.Metrics
	events  events.Publisher
	logger  *zap.Logger
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func New(model llms.Model, database *db.Database, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		model:  model,
		db:     database,
		events: events.Nop{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the assistant's reply to one user message and the id it was stored under.
type Result struct {
	Response  assistant.Response `json:"response"`
	MessageID int64              `json:"message_id"`
}

// ProcessMessage stores the user's message, generates and stores the reply, and names the
// conversation after its first message. db.ErrNotFound is returned when the conversation
// does not belong to userID.
func (s *Service) ProcessMessage(ctx context.Context, userID, conversationID int64, content string) (*Result, error) {
	conv, err := s.db.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg := &models.Message{
		ConvID:  conv.ID,
		Content: content,
		IsUser:  true,
		Type:    models.TypeText,
	}
	if err := s.db.SaveMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	result, err := s.generate(ctx, conv.ID)
	if err != nil {
		s.metrics.ProcessingFailed()
		return nil, err
	}

	reply := &models.Message{
		ConvID:  conv.ID,
		Content: result.Response.Content,
		IsUser:  false,
		Type:    result.Response.Type,
	}
	if err := s.db.SaveMessage(ctx, reply); err != nil {
		s.metrics.ProcessingFailed()
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}
	result.MessageID = reply.ID

	if err := s.renameAfterFirstExchange(ctx, userID, conv.ID, content); err != nil {
		s.logger.Warn("failed to set conversation title",
			zap.Int64("conversation_id", conv.ID),
			zap.Error(err))
	}

	s.metrics.MessageProcessed(result.Response.Type)
	if err := s.events.Publish(ctx, events.MessageProcessed(userID, conv.ID, reply.ID, result.Response.Type)); err != nil {
		s.logger.Warn("failed to publish event",
			zap.Int64("conversation_id", conv.ID),
			zap.Error(err))
	}
	return result, nil
}

func (s *Service) generate(ctx context.Context, conversationID int64) (*Result, error) {
	history, err := s.db.GetConversationHistory(ctx, conversationID, historySize)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}

	prompt := make([]llms.MessageContent, 0, len(history)+1)
	prompt = append(prompt, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, m := range history {
		role := llms.ChatMessageTypeAI
		if m.IsUser {
			role = llms.ChatMessageTypeHuman
		}
		prompt = append(prompt, llms.TextParts(role, m.Content))
	}

	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	resp, err := s.model.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("failed to generate response: empty choices")
	}

	choice := resp.Choices[0]
	if full, ok := choice.GenerationInfo[assistant.InfoResponse].(assistant.Response); ok {
		return &Result{Response: full}, nil
	}
	reply := assistant.Response{Content: choice.Content, Type: models.TypeText}
	if t, ok := choice.GenerationInfo[assistant.InfoMessageType].(string); ok && t != "" {
		reply.Type = t
	}
	return &Result{Response: reply}, nil
}

// renameAfterFirstExchange fires once, when the conversation holds the first user message
// and its reply.
func (s *Service) renameAfterFirstExchange(ctx context.Context, userID, conversationID int64, content string) error {
	n, err := s.db.CountMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	if n != 2 {
		return nil
	}
	return s.db.UpdateConversationTitle(ctx, userID, conversationID, TitleFromMessage(content))
}

// TitleFromMessage truncates to 50 characters, marking the cut with "...".
func TitleFromMessage(content string) string {
	runes := []rune(content)
	if len(runes) <= titleLength {
		return content
	}
	return string(runes[:titleLength]) + "..."
}
