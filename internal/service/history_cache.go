package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/pkg/llm"
)

const historyCacheTTL = time.Hour

// HistoryCache is an optional redis read-through cache of recent
// conversation history. Every operation degrades to a no-op (forcing a DB
// read) when redis is absent or down.
type HistoryCache struct {
	rdb    *redis.Client // nil when redis is not configured
	limit  int
	logger logger.ILogger
}

func NewHistoryCache(rdb *redis.Client, limit int, sysLogger logger.ILogger) *HistoryCache {
	return &HistoryCache{
		rdb:    rdb,
		limit:  limit,
		logger: sysLogger,
	}
}

type cachedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func historyKey(conversationId uuid.UUID) string {
	return "conversation:history:" + conversationId.String()
}

// Get returns the cached history oldest-first. ok is false on miss or any
// redis problem.
func (c *HistoryCache) Get(ctx context.Context, conversationId uuid.UUID) ([]llm.Message, bool) {
	if c.rdb == nil {
		return nil, false
	}

	raw, err := c.rdb.LRange(ctx, historyKey(conversationId), 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	messages := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var m cachedMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, false
		}
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	return messages, true
}

// Prime replaces the cached history wholesale, e.g. after a cache miss was
// served from the database.
func (c *HistoryCache) Prime(ctx context.Context, conversationId uuid.UUID, history []llm.Message) {
	if c.rdb == nil || len(history) == 0 {
		return
	}

	key := historyKey(conversationId)
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	for _, m := range history {
		data, err := json.Marshal(cachedMessage{Role: m.Role, Content: m.Content})
		if err != nil {
			return
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, int64(-c.limit), -1)
	pipe.Expire(ctx, key, historyCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("history-cache", "Failed to prime cache", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}
}

// Append pushes one message and trims to the history budget.
func (c *HistoryCache) Append(ctx context.Context, conversationId uuid.UUID, role, content string) {
	if c.rdb == nil {
		return
	}

	data, err := json.Marshal(cachedMessage{Role: role, Content: content})
	if err != nil {
		return
	}

	key := historyKey(conversationId)
	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-c.limit), -1)
	pipe.Expire(ctx, key, historyCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("history-cache", "Failed to append to cache", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}
}

func (c *HistoryCache) Invalidate(ctx context.Context, conversationId uuid.UUID) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, historyKey(conversationId)).Err(); err != nil {
		c.logger.Warn("history-cache", "Failed to invalidate cache", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}
}
