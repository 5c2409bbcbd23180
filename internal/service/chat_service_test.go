package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-companion-be/internal/constant"
	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/entity"
	"ai-companion-be/pkg/llm"
	"ai-companion-be/pkg/llm/router"
	"ai-companion-be/pkg/rag/prompt"
	"ai-companion-be/pkg/rag/retriever"
)

type fakeRouter struct {
	reply       string
	err         error
	fragments   []string
	finalErr    error
	gotMessages []llm.Message
}

func (f *fakeRouter) Generate(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, string, error) {
	f.gotMessages = history
	if f.err != nil {
		return "", "", f.err
	}
	return f.reply, "fake", nil
}

func (f *fakeRouter) GenerateStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.StreamChunk, string, error) {
	f.gotMessages = history
	if f.err != nil {
		return nil, "", f.err
	}
	ch := make(chan llm.StreamChunk, len(f.fragments)+1)
	go func() {
		defer close(ch)
		for _, frag := range f.fragments {
			ch <- llm.StreamChunk{Content: frag}
		}
		if f.finalErr != nil {
			ch <- llm.StreamChunk{Err: f.finalErr}
		}
	}()
	return ch, "fake", nil
}

type fakeRetriever struct {
	chunks  []retriever.ContextChunk
	err     error
	calls   int
	gotDocs []uuid.UUID
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, documentIds []uuid.UUID, k int) ([]retriever.ContextChunk, error) {
	f.calls++
	f.gotDocs = documentIds
	return f.chunks, f.err
}

func newChatService(store *fakeStore, modelRouter IModelRouter, contextRetriever IContextRetriever) IChatService {
	return NewChatService(
		store.factory(),
		modelRouter,
		contextRetriever,
		prompt.NewBuilder(),
		NewHistoryCache(nil, 10, nopLogger{}),
		10,
		5,
		nopLogger{},
	)
}

func TestChatCreatesConversationAndPersistsBothMessages(t *testing.T) {
	store := newFakeStore()
	r := &fakeRouter{reply: "hi there"}
	svc := newChatService(store, r, &fakeRetriever{})

	res, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hello"})

	require.NoError(t, err)
	assert.Equal(t, "hi there", res.Response)
	require.Contains(t, store.conversations, res.ConversationId)

	messages := store.messagesFor(res.ConversationId)
	require.Len(t, messages, 2)
	assert.Equal(t, constant.MessageRoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, constant.MessageRoleAssistant, messages[1].Role)
	assert.Equal(t, "hi there", messages[1].Content)
}

func TestChatDerivesTitleFromFirstMessage(t *testing.T) {
	store := newFakeStore()
	svc := newChatService(store, &fakeRouter{reply: "ok"}, &fakeRetriever{})

	long := strings.Repeat("a", 80)
	res, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: long})

	require.NoError(t, err)
	title := store.conversations[res.ConversationId].Title
	assert.Equal(t, strings.Repeat("a", constant.ConversationTitleMaxLen)+"...", title)
}

func TestChatReusesExistingConversation(t *testing.T) {
	store := newFakeStore()
	svc := newChatService(store, &fakeRouter{reply: "ok"}, &fakeRetriever{})

	first, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "one"})
	require.NoError(t, err)

	second, err := svc.Chat(context.Background(), &dto.ChatRequest{
		Message:        "two",
		ConversationId: &first.ConversationId,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ConversationId, second.ConversationId)
	assert.Len(t, store.messagesFor(first.ConversationId), 4)
	assert.Len(t, store.conversations, 1)
}

func TestChatUnknownConversationIsNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newChatService(store, &fakeRouter{reply: "ok"}, &fakeRetriever{})

	missing := uuid.New()
	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hi", ConversationId: &missing})

	assert.Error(t, err)
	assert.Empty(t, store.messages)
}

func TestChatSkipsRetrievalWithoutDocumentScope(t *testing.T) {
	store := newFakeStore()
	ret := &fakeRetriever{}
	svc := newChatService(store, &fakeRouter{reply: "ok"}, ret)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hi"})

	require.NoError(t, err)
	assert.Equal(t, 0, ret.calls)
}

func TestChatGroundsOnRetrievedContext(t *testing.T) {
	store := newFakeStore()
	docID := uuid.New()
	chunkID := uuid.New()
	ret := &fakeRetriever{chunks: []retriever.ContextChunk{
		{ChunkId: chunkID, DocumentId: docID, Text: "the sky is green", Score: 0.9},
	}}
	r := &fakeRouter{reply: "green"}
	svc := newChatService(store, r, ret)

	res, err := svc.Chat(context.Background(), &dto.ChatRequest{
		Message:     "sky color?",
		DocumentIds: []uuid.UUID{docID},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, ret.calls)
	assert.Equal(t, []uuid.UUID{docID}, ret.gotDocs)

	// Context is folded into the system message sent to the model.
	require.NotEmpty(t, r.gotMessages)
	assert.Contains(t, r.gotMessages[0].Content, "the sky is green")

	// And surfaced as sources, on the response and the stored message.
	require.Len(t, res.Sources, 1)
	assert.Equal(t, chunkID, res.Sources[0].ChunkId)
	messages := store.messagesFor(res.ConversationId)
	require.Len(t, messages, 2)
	assert.Equal(t, []uuid.UUID{chunkID}, messages[1].SourceChunkIds)
}

func TestChatRetrievalFailureKeepsUserMessage(t *testing.T) {
	store := newFakeStore()
	ret := &fakeRetriever{err: errors.New("embedding backend unavailable")}
	svc := newChatService(store, &fakeRouter{reply: "never reached"}, ret)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{
		Message:     "sky color?",
		DocumentIds: []uuid.UUID{uuid.New()},
	})

	require.Error(t, err)

	// The user message is durable even though retrieval never completed.
	require.Len(t, store.messages, 1)
	assert.Equal(t, constant.MessageRoleUser, store.messages[0].Role)
	assert.Equal(t, "sky color?", store.messages[0].Content)
}

func TestChatNoProviderPersistsNoAssistantMessage(t *testing.T) {
	store := newFakeStore()
	svc := newChatService(store, &fakeRouter{err: router.ErrNoProviderAvailable}, &fakeRetriever{})

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hello"})

	assert.ErrorIs(t, err, router.ErrNoProviderAvailable)

	// The user message is kept, the failed generation is not.
	require.Len(t, store.messages, 1)
	assert.Equal(t, constant.MessageRoleUser, store.messages[0].Role)
}

func TestChatStreamConcatenationMatchesStoredContent(t *testing.T) {
	store := newFakeStore()
	r := &fakeRouter{fragments: []string{"Hel", "lo ", "world"}}
	svc := newChatService(store, r, &fakeRetriever{})

	handle, err := svc.ChatStream(context.Background(), &dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)

	var got string
	for frag := range handle.Fragments {
		require.NoError(t, frag.Err)
		got += frag.Content
	}
	assert.Equal(t, "Hello world", got)

	messages := store.messagesFor(handle.ConversationId)
	require.Len(t, messages, 2)
	assert.Equal(t, "Hello world", messages[1].Content)
	assert.False(t, messages[1].Incomplete)
}

func TestChatStreamPersistsPartialOnInterruption(t *testing.T) {
	store := newFakeStore()
	r := &fakeRouter{
		fragments: []string{"partial "},
		finalErr:  router.ErrStreamInterrupted,
	}
	svc := newChatService(store, r, &fakeRetriever{})

	handle, err := svc.ChatStream(context.Background(), &dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)

	var got string
	var finalErr error
	for frag := range handle.Fragments {
		if frag.Err != nil {
			finalErr = frag.Err
			continue
		}
		got += frag.Content
	}

	assert.Equal(t, "partial ", got)
	assert.ErrorIs(t, finalErr, router.ErrStreamInterrupted)

	messages := store.messagesFor(handle.ConversationId)
	require.Len(t, messages, 2)
	assert.Equal(t, "partial ", messages[1].Content)
	assert.True(t, messages[1].Incomplete)
}

func TestChatStreamNothingEmittedNothingPersisted(t *testing.T) {
	store := newFakeStore()
	r := &fakeRouter{finalErr: router.ErrStreamInterrupted}
	svc := newChatService(store, r, &fakeRetriever{})

	handle, err := svc.ChatStream(context.Background(), &dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)

	var finalErr error
	for frag := range handle.Fragments {
		finalErr = frag.Err
	}
	assert.ErrorIs(t, finalErr, router.ErrStreamInterrupted)

	// Only the user message survives; no empty assistant message.
	require.Len(t, store.messagesFor(handle.ConversationId), 1)
}

func TestGetConversationReturnsOrderedMessages(t *testing.T) {
	store := newFakeStore()
	svc := newChatService(store, &fakeRouter{reply: "ok"}, &fakeRetriever{})

	res, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hello"})
	require.NoError(t, err)

	conv, err := svc.GetConversation(context.Background(), res.ConversationId)
	require.NoError(t, err)

	assert.Equal(t, res.ConversationId, conv.ConversationId)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, constant.MessageRoleUser, conv.Messages[0].Role)
	assert.Equal(t, constant.MessageRoleAssistant, conv.Messages[1].Role)
}

func TestGetConversationNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newChatService(store, &fakeRouter{}, &fakeRetriever{})

	_, err := svc.GetConversation(context.Background(), uuid.New())

	assert.Error(t, err)
}

func TestDeleteConversationRemovesMessages(t *testing.T) {
	store := newFakeStore()
	svc := newChatService(store, &fakeRouter{reply: "ok"}, &fakeRetriever{})

	res, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hello"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(context.Background(), res.ConversationId))

	assert.NotContains(t, store.conversations, res.ConversationId)
	assert.Empty(t, store.messagesFor(res.ConversationId))
}

func TestListConversationsClampsLimit(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.conversations[id] = &entity.Conversation{Id: id, Title: "t"}
	svc := newChatService(store, &fakeRouter{}, &fakeRetriever{})

	res, err := svc.ListConversations(context.Background(), -5, -1)

	require.NoError(t, err)
	assert.Equal(t, 20, res.Limit)
	assert.Equal(t, 0, res.Offset)
	assert.Len(t, res.Conversations, 1)
}
