package assistant

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"
)

// GenerationInfo keys set on every choice returned by Model.
const (
	InfoMessageType = "message_type"
	InfoResponse    = "response"
)

var ErrNoPrompt = errors.New("no human message to answer")

// Model exposes a Processor as a langchaingo llms.Model. It answers the last human text
// part of the conversation and ignores everything else.
type Model struct {
	processor *Processor
}

var _ llms.Model = (*Model)(nil)

func NewModel(processor *Processor) *Model {
	return &Model{processor: processor}
}

func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompt, ok := lastHumanText(messages)
	if !ok {
		return nil, ErrNoPrompt
	}

	resp := m.processor.Process(prompt)
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:    resp.Content,
			StopReason: "stop",
			GenerationInfo: map[string]any{
				InfoMessageType: resp.Type,
				InfoResponse:    resp,
			},
		}},
	}, nil
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func lastHumanText(messages []llms.MessageContent) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.ChatMessageTypeHuman {
			continue
		}
		for _, part := range messages[i].Parts {
			if text, ok := part.(llms.TextContent); ok {
				return text.Text, true
			}
		}
	}
	return "", false
}
