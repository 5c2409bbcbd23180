package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-companion-be/internal/apperrors"
	"ai-companion-be/internal/constant"
	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/entity"
	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/internal/repository/specification"
	"ai-companion-be/internal/repository/unitofwork"
	"ai-companion-be/pkg/llm"
	"ai-companion-be/pkg/rag/prompt"
	"ai-companion-be/pkg/rag/retriever"
)

// IModelRouter is the slice of the model router the orchestrator needs.
type IModelRouter interface {
	Generate(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, string, error)
	GenerateStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.StreamChunk, string, error)
}

// IContextRetriever turns a query into grounding chunks.
type IContextRetriever interface {
	Retrieve(ctx context.Context, query string, documentIds []uuid.UUID, k int) ([]retriever.ContextChunk, error)
}

// StreamFragment is one piece of a streamed answer handed to the transport
// layer. Err is only set on the terminal fragment.
type StreamFragment struct {
	Content string
	Err     error
}

type ChatStreamHandle struct {
	ConversationId uuid.UUID
	Fragments      <-chan StreamFragment
}

type IChatService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	ChatStream(ctx context.Context, req *dto.ChatRequest) (*ChatStreamHandle, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*dto.ConversationResponse, error)
	ListConversations(ctx context.Context, limit, offset int) (*dto.ListConversationsResponse, error)
	DeleteConversation(ctx context.Context, id uuid.UUID) error
}

type chatService struct {
	uowFactory    unitofwork.RepositoryFactory
	router        IModelRouter
	retriever     IContextRetriever
	promptBuilder *prompt.Builder
	historyCache  *HistoryCache
	historyLimit  int
	retrievalK    int
	logger        logger.ILogger

	// One mutex per live conversation serializes exchanges; concurrent
	// requests for the same conversation queue rather than interleave.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	modelRouter IModelRouter,
	contextRetriever IContextRetriever,
	promptBuilder *prompt.Builder,
	historyCache *HistoryCache,
	historyLimit int,
	retrievalK int,
	sysLogger logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:    uowFactory,
		router:        modelRouter,
		retriever:     contextRetriever,
		promptBuilder: promptBuilder,
		historyCache:  historyCache,
		historyLimit:  historyLimit,
		retrievalK:    retrievalK,
		logger:        sysLogger,
	}
}

func (cs *chatService) lockConversation(id uuid.UUID) func() {
	cs.locksMu.Lock()
	if cs.locks == nil {
		cs.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	mu, ok := cs.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		cs.locks[id] = mu
	}
	cs.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// exchangeState carries everything prepared before generation starts.
type exchangeState struct {
	conversationId uuid.UUID
	contexts       []retriever.ContextChunk
	messages       []llm.Message
	unlock         func()
}

// prepare resolves the conversation (creating one on first contact),
// persists the user message, retrieves grounding context when the request
// names documents, and assembles the model prompt. The returned state holds
// the conversation lock; the caller must release it via state.unlock.
func (cs *chatService) prepare(ctx context.Context, req *dto.ChatRequest) (*exchangeState, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	var conversation *entity.Conversation
	if req.ConversationId != nil {
		found, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: *req.ConversationId})
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, apperrors.ErrNotFound
		}
		conversation = found
	} else {
		conversation = &entity.Conversation{
			Id:        uuid.New(),
			Title:     makeTitle(req.Message),
			CreatedAt: time.Now(),
		}
		if err := uow.ConversationRepository().Create(ctx, conversation); err != nil {
			return nil, err
		}
	}

	unlock := cs.lockConversation(conversation.Id)
	success := false
	defer func() {
		if !success {
			unlock()
		}
	}()

	history, err := cs.loadHistory(ctx, conversation.Id)
	if err != nil {
		return nil, err
	}
	history = prompt.TruncateHistory(history, cs.historyLimit)

	// The user message is durable before retrieval or generation starts:
	// a failure further down still leaves it in the conversation.
	if _, err := cs.appendMessage(ctx, conversation.Id, constant.MessageRoleUser, req.Message, false, nil); err != nil {
		return nil, err
	}

	// Retrieval only runs when the request scopes itself to documents;
	// unscoped chat is plain conversation.
	var contexts []retriever.ContextChunk
	if len(req.DocumentIds) > 0 {
		contexts, err = cs.retriever.Retrieve(ctx, req.Message, req.DocumentIds, cs.retrievalK)
		if err != nil {
			return nil, err
		}
	}

	success = true
	return &exchangeState{
		conversationId: conversation.Id,
		contexts:       contexts,
		messages:       cs.promptBuilder.Build(contexts, history, req.Message),
		unlock:         unlock,
	}, nil
}

func (cs *chatService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	state, err := cs.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	defer state.unlock()

	reply, providerName, err := cs.router.Generate(ctx, state.messages)
	if err != nil {
		// No output means no assistant message is persisted.
		return nil, err
	}

	msg, err := cs.appendMessage(ctx, state.conversationId, constant.MessageRoleAssistant, reply, false, sourceIds(state.contexts))
	if err != nil {
		return nil, err
	}

	cs.logger.Info("chat-service", "Exchange completed", map[string]interface{}{
		"conversation_id": state.conversationId.String(),
		"provider":        providerName,
		"context_chunks":  len(state.contexts),
	})

	return &dto.ChatResponse{
		ConversationId: state.conversationId,
		Response:       reply,
		Timestamp:      msg.CreatedAt,
		Sources:        toSourceDTOs(state.contexts),
	}, nil
}

// ChatStream runs the same exchange but fans fragments out as they arrive.
// Whatever was emitted before a mid-stream failure or client disconnect is
// persisted as an incomplete assistant message.
func (cs *chatService) ChatStream(ctx context.Context, req *dto.ChatRequest) (*ChatStreamHandle, error) {
	state, err := cs.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	stream, providerName, err := cs.router.GenerateStream(ctx, state.messages)
	if err != nil {
		state.unlock()
		return nil, err
	}

	out := make(chan StreamFragment, 16)
	go func() {
		defer close(out)
		defer state.unlock()

		var sb strings.Builder
		var streamErr error

	loop:
		for chunk := range stream {
			if chunk.Err != nil {
				streamErr = chunk.Err
				break
			}
			sb.WriteString(chunk.Content)
			select {
			case out <- StreamFragment{Content: chunk.Content}:
			case <-ctx.Done():
				streamErr = ctx.Err()
				break loop
			}
		}
		if streamErr == nil && ctx.Err() != nil {
			streamErr = ctx.Err()
		}

		// Persistence must survive the request context being cancelled.
		persistCtx := context.WithoutCancel(ctx)

		if streamErr != nil {
			if sb.Len() > 0 {
				if _, err := cs.appendMessage(persistCtx, state.conversationId, constant.MessageRoleAssistant, sb.String(), true, sourceIds(state.contexts)); err != nil {
					cs.logger.Error("chat-service", "Failed to persist partial response", map[string]interface{}{
						"conversation_id": state.conversationId.String(),
						"error":           err.Error(),
					})
				}
			}
			cs.logger.Warn("chat-service", "Stream ended abnormally", map[string]interface{}{
				"conversation_id": state.conversationId.String(),
				"provider":        providerName,
				"error":           streamErr.Error(),
			})
			out <- StreamFragment{Err: streamErr}
			return
		}

		if _, err := cs.appendMessage(persistCtx, state.conversationId, constant.MessageRoleAssistant, sb.String(), false, sourceIds(state.contexts)); err != nil {
			cs.logger.Error("chat-service", "Failed to persist response", map[string]interface{}{
				"conversation_id": state.conversationId.String(),
				"error":           err.Error(),
			})
			out <- StreamFragment{Err: err}
			return
		}

		cs.logger.Info("chat-service", "Streamed exchange completed", map[string]interface{}{
			"conversation_id": state.conversationId.String(),
			"provider":        providerName,
			"context_chunks":  len(state.contexts),
		})
	}()

	return &ChatStreamHandle{
		ConversationId: state.conversationId,
		Fragments:      out,
	}, nil
}

func (cs *chatService) GetConversation(ctx context.Context, id uuid.UUID) (*dto.ConversationResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, apperrors.ErrNotFound
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: id},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	messageDTOs := make([]dto.MessageDTO, len(messages))
	for i, m := range messages {
		messageDTOs[i] = dto.MessageDTO{
			Id:         m.Id,
			Role:       m.Role,
			Content:    m.Content,
			Incomplete: m.Incomplete,
			Sources:    m.SourceChunkIds,
			CreatedAt:  m.CreatedAt,
		}
	}

	return &dto.ConversationResponse{
		ConversationId: conversation.Id,
		Title:          conversation.Title,
		Messages:       messageDTOs,
		CreatedAt:      conversation.CreatedAt,
	}, nil
}

func (cs *chatService) ListConversations(ctx context.Context, limit, offset int) (*dto.ListConversationsResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.ConversationSummaryDTO, len(conversations))
	for i, c := range conversations {
		summaries[i] = dto.ConversationSummaryDTO{
			ConversationId: c.Id,
			Title:          c.Title,
			CreatedAt:      c.CreatedAt,
		}
	}

	return &dto.ListConversationsResponse{
		Conversations: summaries,
		Limit:         limit,
		Offset:        offset,
	}, nil
}

func (cs *chatService) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if conversation == nil {
		return apperrors.ErrNotFound
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().DeleteByConversationId(ctx, id); err != nil {
		return err
	}
	if err := uow.ConversationRepository().Delete(ctx, id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	cs.historyCache.Invalidate(ctx, id)
	return nil
}

// loadHistory serves recent history from redis when possible and falls back
// to the database, priming the cache on a miss.
func (cs *chatService) loadHistory(ctx context.Context, conversationId uuid.UUID) ([]llm.Message, error) {
	if cached, ok := cs.historyCache.Get(ctx, conversationId); ok {
		return cached, nil
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, len(messages))
	for i, m := range messages {
		history[i] = llm.Message{Role: m.Role, Content: m.Content}
	}

	cs.historyCache.Prime(ctx, conversationId, history)
	return history, nil
}

func (cs *chatService) appendMessage(ctx context.Context, conversationId uuid.UUID, role, content string, incomplete bool, sources []uuid.UUID) (*entity.Message, error) {
	msg := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conversationId,
		Role:           role,
		Content:        content,
		Incomplete:     incomplete,
		SourceChunkIds: sources,
		CreatedAt:      time.Now(),
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.MessageRepository().Create(ctx, msg); err != nil {
		return nil, err
	}

	cs.historyCache.Append(ctx, conversationId, role, content)
	return msg, nil
}

func makeTitle(firstMessage string) string {
	title := strings.TrimSpace(firstMessage)
	runes := []rune(title)
	if len(runes) > constant.ConversationTitleMaxLen {
		title = string(runes[:constant.ConversationTitleMaxLen]) + "..."
	}
	if title == "" {
		title = "New conversation"
	}
	return title
}

func sourceIds(contexts []retriever.ContextChunk) []uuid.UUID {
	if len(contexts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(contexts))
	for i, c := range contexts {
		ids[i] = c.ChunkId
	}
	return ids
}

const sourcePreviewMaxLen = 200

func toSourceDTOs(contexts []retriever.ContextChunk) []dto.SourceDTO {
	if len(contexts) == 0 {
		return nil
	}
	sources := make([]dto.SourceDTO, len(contexts))
	for i, c := range contexts {
		preview := c.Text
		if runes := []rune(preview); len(runes) > sourcePreviewMaxLen {
			preview = string(runes[:sourcePreviewMaxLen]) + "..."
		}
		sources[i] = dto.SourceDTO{
			DocumentId: c.DocumentId,
			ChunkId:    c.ChunkId,
			ChunkIndex: c.ChunkIndex,
			Preview:    preview,
			Score:      c.Score,
		}
	}
	return sources
}
