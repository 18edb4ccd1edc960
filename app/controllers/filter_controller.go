package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/modhub/moderation-go/app/bootstrap"
	"github.com/modhub/moderation-go/internal/moderation"
	"github.com/modhub/moderation-go/internal/services"
)

// FilterController 拦截判定控制器
type FilterController struct {
	BaseController
	classifier *moderation.Classifier
	cache      *services.DecisionCache
}

// Prepare 初始化控制器
func (c *FilterController) Prepare() {
	app := bootstrap.GetApp()
	if app != nil {
		c.classifier = app.Classifier
		c.cache = app.DecisionCache
	}
}

// checkRequest 判定请求体。threshold接受数值或字符串，
// label（单个）与labels（列表）二选一
type checkRequest struct {
	Text      string      `json:"text" validate:"required"`
	Threshold interface{} `json:"threshold"`
	Label     string      `json:"label"`
	Labels    []string    `json:"labels"`
}

// Check 判定输入文本是否应被拦截。
// 无种子或检索故障时返回放行结果而不是错误
func (c *FilterController) Check() {
	if c.classifier == nil {
		c.JSONError(http.StatusServiceUnavailable, "classifier not available")
		return
	}

	var req checkRequest
	if !c.decodeBody(&req) {
		return
	}

	ctx := c.Ctx.Request.Context()
	threshold := c.classifier.ResolveThreshold(req.Threshold)
	labels := moderation.ResolveLabels(req.Label, req.Labels)

	var cacheKey string
	if c.cache != nil && c.cache.Enabled() {
		cacheKey = services.DecisionKey(req.Text, threshold, labels)
		if cached := c.cache.Get(ctx, cacheKey); cached != nil {
			services.RecordCacheLookup(true)
			c.JSON(http.StatusOK, cached)
			return
		}
		services.RecordCacheLookup(false)
	}

	start := time.Now()
	result, err := c.classifier.Classify(ctx, req.Text, threshold, labels)
	if err != nil {
		if errors.Is(err, moderation.ErrEmptyText) {
			c.JSONError(http.StatusBadRequest, err.Error())
			return
		}
		// 向量化失败没有回退向量，直接向调用方报错
		c.JSONError(http.StatusBadGateway, "failed to embed input")
		return
	}
	services.ObserveClassificationDuration(time.Since(start).Seconds())
	services.RecordClassification(result.Block, result.Reason == moderation.ReasonSeedIndexUnavailable)

	if cacheKey != "" {
		c.cache.Set(ctx, cacheKey, result)
	}

	c.JSON(http.StatusOK, result)
}
