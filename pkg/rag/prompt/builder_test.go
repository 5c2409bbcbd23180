package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-companion-be/pkg/llm"
	"ai-companion-be/pkg/rag/retriever"
)

func TestBuildWithoutContext(t *testing.T) {
	b := NewBuilder()

	messages := b.Build(nil, nil, "hello")

	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.NotContains(t, messages[0].Content, "Context information is below")
	assert.Equal(t, llm.Message{Role: "user", Content: "hello"}, messages[1])
}

func TestBuildFoldsContextIntoSystemMessage(t *testing.T) {
	b := NewBuilder()
	chunks := []retriever.ContextChunk{
		{Text: "The sky is green."},
		{Text: "Water boils at 90 degrees here."},
	}

	messages := b.Build(chunks, nil, "what color is the sky?")

	require.Len(t, messages, 2)
	system := messages[0].Content
	assert.Contains(t, system, "Context information is below")
	assert.Contains(t, system, "The sky is green.")
	assert.Contains(t, system, "Water boils at 90 degrees here.")
	assert.Contains(t, system, "Given the context information and not prior knowledge")
}

func TestBuildPreservesHistoryOrder(t *testing.T) {
	b := NewBuilder()
	history := []llm.Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
	}

	messages := b.Build(nil, history, "second question")

	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "first question", messages[1].Content)
	assert.Equal(t, "first answer", messages[2].Content)
	assert.Equal(t, "second question", messages[3].Content)
}

func TestBuildWithCustomSystemPrompt(t *testing.T) {
	b := NewBuilderWithSystemPrompt("You are a pirate.")

	messages := b.Build(nil, nil, "hello")

	assert.Equal(t, "You are a pirate.", messages[0].Content)

	// Empty override falls back to the default prompt.
	fallback := NewBuilderWithSystemPrompt("")
	messages = fallback.Build(nil, nil, "hello")
	assert.NotEmpty(t, messages[0].Content)
}

func TestTruncateHistory(t *testing.T) {
	history := []llm.Message{
		{Role: "user", Content: "1"},
		{Role: "assistant", Content: "2"},
		{Role: "user", Content: "3"},
		{Role: "assistant", Content: "4"},
	}

	kept := TruncateHistory(history, 2)
	require.Len(t, kept, 2)
	assert.Equal(t, "3", kept[0].Content)
	assert.Equal(t, "4", kept[1].Content)

	assert.Len(t, TruncateHistory(history, 0), 4, "zero means no limit")
	assert.Len(t, TruncateHistory(history, 10), 4)
}
