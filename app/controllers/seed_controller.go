package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/modhub/moderation-go/app/bootstrap"
	"github.com/modhub/moderation-go/internal/moderation"
	"github.com/modhub/moderation-go/internal/services"
)

// SeedController 种子短语管理控制器
type SeedController struct {
	BaseController
	seeds *moderation.SeedStore
}

// Prepare 初始化控制器
func (c *SeedController) Prepare() {
	app := bootstrap.GetApp()
	if app != nil {
		c.seeds = app.SeedStore
	}
}

// addSeedsRequest 种子写入请求体。phrases接受单个字符串或字符串数组
type addSeedsRequest struct {
	Label   string          `json:"label" validate:"required"`
	Phrases json.RawMessage `json:"phrases" validate:"required"`
}

func parsePhrases(raw json.RawMessage) ([]string, bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, true
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}

	// 数组中的非字符串条目跳过，不拖垮整批
	phrases := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		phrases = append(phrases, s)
	}
	return phrases, true
}

// Add 批量写入种子短语。空白条目静默跳过
func (c *SeedController) Add() {
	if c.seeds == nil {
		c.JSONError(http.StatusServiceUnavailable, "seed store not available")
		return
	}

	var req addSeedsRequest
	if !c.decodeBody(&req) {
		return
	}

	phrases, ok := parsePhrases(req.Phrases)
	if !ok {
		c.JSONError(http.StatusBadRequest, "phrases must be a string or an array of strings")
		return
	}

	outcomes, err := c.seeds.UpsertSeeds(c.Ctx.Request.Context(), req.Label, phrases)
	for _, outcome := range outcomes {
		services.RecordSeedUpsert(outcome.Result)
	}
	if err != nil {
		if errors.Is(err, moderation.ErrEmptyLabel) {
			c.JSONError(http.StatusBadRequest, err.Error())
			return
		}
		// 中途失败时回传已落库的条目，调用方据此判断哪些写入成功
		c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "failed to index seeds",
			"data": map[string]interface{}{
				"count": len(outcomes),
				"items": outcomes,
			},
		})
		return
	}

	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"count": len(outcomes),
			"items": outcomes,
		},
	})
}

// Labels 列出当前存在的标签及种子数量
func (c *SeedController) Labels() {
	if c.seeds == nil {
		c.JSONError(http.StatusServiceUnavailable, "seed store not available")
		return
	}

	labels, err := c.seeds.ListLabels(c.Ctx.Request.Context())
	if err != nil {
		c.JSONError(http.StatusInternalServerError, "failed to list labels")
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"labels": labels,
	})
}
