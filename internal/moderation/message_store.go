package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyMessageText 消息文本为空时写入被拒绝
var ErrEmptyMessageText = errors.New("text is required")

// IncomingMessage 待入库的聊天消息。Timestamp接受Unix秒/毫秒数值或ISO-8601字符串
type IncomingMessage struct {
	ChatID    int64
	MessageID int64
	Text      string
	ChatTitle string
	UserID    int64
	Username  string
	IsBot     bool
	Timestamp interface{}
}

// StoredMessage 消息写入结果
type StoredMessage struct {
	ID     string `json:"_id"`
	Result string `json:"result"`
}

// MessageStore 聊天消息的向量存储。写入为主，按(chat_id, message_id)可回取。
// 与种子匹配无关，仅为后续检索能力保留向量
type MessageStore struct {
	client   SearchBackend
	embedder Embedder
	index    string
}

// NewMessageStore 创建消息存储
func NewMessageStore(client SearchBackend, embedder Embedder, index string) *MessageStore {
	if index == "" {
		index = "telegram-chats"
	}
	return &MessageStore{
		client:   client,
		embedder: embedder,
		index:    index,
	}
}

// Index 返回消息索引名
func (m *MessageStore) Index() string {
	return m.index
}

func (m *MessageStore) mapping() map[string]interface{} {
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":         map[string]interface{}{"type": "keyword"},
				"chat_id":    map[string]interface{}{"type": "long"},
				"message_id": map[string]interface{}{"type": "long"},
				"chat_title": map[string]interface{}{"type": "text"},
				"user_id":    map[string]interface{}{"type": "long"},
				"username":   map[string]interface{}{"type": "text"},
				"is_bot":     map[string]interface{}{"type": "boolean"},
				"text":       map[string]interface{}{"type": "text"},
				"timestamp":  map[string]interface{}{"type": "date"},
				"embedding": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       m.embedder.Dimensions(),
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
}

// EnsureIndex 确保消息索引存在
func (m *MessageStore) EnsureIndex(ctx context.Context) (bool, error) {
	if m.embedder.Dimensions() <= 0 {
		return false, errors.New("embedding dimensions not configured")
	}
	created, err := m.client.EnsureIndex(ctx, m.index, m.mapping())
	if err != nil {
		return false, fmt.Errorf("failed to ensure message index: %w", err)
	}
	return created, nil
}

// MessageDocID 组合键"{chat_id}_{message_id}"，同一消息重复写入覆盖
func MessageDocID(chatID, messageID int64) string {
	return fmt.Sprintf("%d_%d", chatID, messageID)
}

// UpsertMessage 向量化并写入一条聊天消息。写入失败直接向上传播
func (m *MessageStore) UpsertMessage(ctx context.Context, msg IncomingMessage) (*StoredMessage, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return nil, ErrEmptyMessageText
	}

	vector, err := m.embedder.Embed(ctx, msg.Text, EmbedPassage)
	if err != nil {
		return nil, fmt.Errorf("failed to embed message: %w", err)
	}

	id := MessageDocID(msg.ChatID, msg.MessageID)
	doc := map[string]interface{}{
		"id":         id,
		"chat_id":    msg.ChatID,
		"message_id": msg.MessageID,
		"chat_title": msg.ChatTitle,
		"user_id":    msg.UserID,
		"username":   msg.Username,
		"is_bot":     msg.IsBot,
		"text":       msg.Text,
		"timestamp":  NormalizeTimestamp(msg.Timestamp, time.Now()),
		"embedding":  vector,
	}

	result, err := m.client.Upsert(ctx, m.index, id, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to index message: %w", err)
	}

	return &StoredMessage{ID: result.ID, Result: result.Result}, nil
}

// GetMessage 按组合键回取消息文档
func (m *MessageStore) GetMessage(ctx context.Context, chatID, messageID int64) (map[string]interface{}, bool, error) {
	return m.client.GetDocument(ctx, m.index, MessageDocID(chatID, messageID))
}

// NormalizeTimestamp 将时间戳规范化为ISO-8601 UTC字符串。
// 数值按Unix秒处理（明显过大的按毫秒），可解析的字符串原样保留，
// 其余（缺失/无法解析）回退为当前UTC时间
func NormalizeTimestamp(raw interface{}, now time.Time) string {
	fallback := now.UTC().Format(time.RFC3339)

	switch v := raw.(type) {
	case nil:
		return fallback
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case int:
		return epochToISO(int64(v))
	case int64:
		return epochToISO(v)
	case float64:
		return epochToISO(int64(v))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return epochToISO(n)
		}
		if f, err := v.Float64(); err == nil {
			return epochToISO(int64(f))
		}
		return fallback
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return fallback
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if _, err := time.Parse(layout, s); err == nil {
				return s
			}
		}
		return fallback
	default:
		return fallback
	}
}

// epochToISO Unix时间戳转ISO-8601 UTC。13位以上视为毫秒
func epochToISO(n int64) string {
	if n > 1_000_000_000_000 {
		return time.UnixMilli(n).UTC().Format(time.RFC3339)
	}
	return time.Unix(n, 0).UTC().Format(time.RFC3339)
}
