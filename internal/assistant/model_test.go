package assistant

import (
	"context"
	"testing"

	"github.com/RichardoC/agroai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestModelGenerateContentAnswersLastHumanMessage(t *testing.T) {
	m := NewModel(newTestProcessor())

	resp, err := m.GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "You are AgroAI"),
		llms.TextParts(llms.ChatMessageTypeHuman, "hello"),
		llms.TextParts(llms.ChatMessageTypeAI, "Hi there!"),
		llms.TextParts(llms.ChatMessageTypeHuman, "plot the trends"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)

	choice := resp.Choices[0]
	assert.Equal(t, models.TypeVisualization, choice.GenerationInfo[InfoMessageType])
	full, ok := choice.GenerationInfo[InfoResponse].(Response)
	require.True(t, ok)
	assert.Equal(t, choice.Content, full.Content)
	assert.NotNil(t, full.VisualizationData)
}

func TestModelGenerateContentWithoutPrompt(t *testing.T) {
	m := NewModel(newTestProcessor())

	_, err := m.GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "You are AgroAI"),
	})
	assert.ErrorIs(t, err, ErrNoPrompt)
}

func TestModelGenerateContentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewModel(newTestProcessor()).GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hello"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModelCall(t *testing.T) {
	out, err := NewModel(newTestProcessor()).Call(context.Background(), "good evening")
	require.NoError(t, err)
	assert.Contains(t, Greetings, out)
}
