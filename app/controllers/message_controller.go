package controllers

import (
	"errors"
	"net/http"

	"github.com/modhub/moderation-go/app/bootstrap"
	"github.com/modhub/moderation-go/internal/moderation"
)

// MessageController 聊天消息入库控制器
type MessageController struct {
	BaseController
	messages *moderation.MessageStore
}

// Prepare 初始化控制器
func (c *MessageController) Prepare() {
	app := bootstrap.GetApp()
	if app != nil {
		c.messages = app.MessageStore
	}
}

// ingestMessageRequest 消息入库请求体
type ingestMessageRequest struct {
	Text      string      `json:"text" validate:"required"`
	ChatID    *int64      `json:"chat_id" validate:"required"`
	MessageID *int64      `json:"message_id" validate:"required"`
	ChatTitle string      `json:"chat_title"`
	UserID    int64       `json:"user_id"`
	Username  string      `json:"username"`
	IsBot     bool        `json:"is_bot"`
	Timestamp interface{} `json:"timestamp"`
}

// Ingest 向量化并写入一条聊天消息
func (c *MessageController) Ingest() {
	if c.messages == nil {
		c.JSONError(http.StatusServiceUnavailable, "message store not available")
		return
	}

	var req ingestMessageRequest
	if !c.decodeBody(&req) {
		return
	}

	stored, err := c.messages.UpsertMessage(c.Ctx.Request.Context(), moderation.IncomingMessage{
		ChatID:    *req.ChatID,
		MessageID: *req.MessageID,
		Text:      req.Text,
		ChatTitle: req.ChatTitle,
		UserID:    req.UserID,
		Username:  req.Username,
		IsBot:     req.IsBot,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		if errors.Is(err, moderation.ErrEmptyMessageText) {
			c.JSONError(http.StatusBadRequest, err.Error())
			return
		}
		c.JSONError(http.StatusInternalServerError, "failed to index message")
		return
	}

	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"id":     stored.ID,
			"result": stored.Result,
		},
	})
}

// Get 按(chat_id, message_id)回取消息
func (c *MessageController) Get() {
	if c.messages == nil {
		c.JSONError(http.StatusServiceUnavailable, "message store not available")
		return
	}

	chatID, err1 := c.GetInt64(":chat_id")
	messageID, err2 := c.GetInt64(":message_id")
	if err1 != nil || err2 != nil {
		c.JSONError(http.StatusBadRequest, "chat_id and message_id must be integers")
		return
	}

	doc, found, err := c.messages.GetMessage(c.Ctx.Request.Context(), chatID, messageID)
	if err != nil {
		c.JSONError(http.StatusInternalServerError, "failed to fetch message")
		return
	}
	if !found {
		c.JSONError(http.StatusNotFound, "message not found")
		return
	}

	// 不回传向量本体
	delete(doc, "embedding")
	c.JSONSuccess(doc)
}
