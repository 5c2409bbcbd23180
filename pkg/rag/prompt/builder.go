package prompt

import (
	"strings"

	"ai-companion-be/pkg/llm"
	"ai-companion-be/pkg/rag/retriever"
)

const defaultSystemPrompt = `You are a helpful and knowledgeable assistant. Answer clearly and concisely. When reference material is provided, ground your answer in it and say so honestly when it does not contain the answer. Do not invent citations.`

// Builder assembles the message list sent to the model: a system prompt
// with retrieved context folded in, then conversation history, then the new
// user message.
type Builder struct {
	systemPrompt string
}

func NewBuilder() *Builder {
	return &Builder{systemPrompt: defaultSystemPrompt}
}

func NewBuilderWithSystemPrompt(systemPrompt string) *Builder {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &Builder{systemPrompt: systemPrompt}
}

func (b *Builder) Build(contextChunks []retriever.ContextChunk, history []llm.Message, userMessage string) []llm.Message {
	system := b.systemPrompt
	if len(contextChunks) > 0 {
		var sb strings.Builder
		sb.WriteString(system)
		sb.WriteString("\n\nContext information is below.\n---------------------\n")
		for i, chunk := range contextChunks {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(chunk.Text)
		}
		sb.WriteString("\n---------------------\nGiven the context information and not prior knowledge, answer the query.")
		system = sb.String()
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: userMessage})
	return messages
}

// TruncateHistory keeps the most recent max messages, dropping oldest
// first. max <= 0 means no limit.
func TruncateHistory(history []llm.Message, max int) []llm.Message {
	if max <= 0 || len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}
