package controllers

import (
	"net/http"

	"github.com/modhub/moderation-go/app/bootstrap"
	"github.com/modhub/moderation-go/internal/services"
)

// RootController 根控制器
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{"message": "Moderation Gateway API"})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
}

func (c *HealthController) Health() {
	app := bootstrap.GetApp()
	if app == nil || app.SearchClient == nil {
		c.JSONError(http.StatusServiceUnavailable, "search backend not initialized")
		return
	}

	status := map[string]interface{}{
		"status":   "healthy",
		"embedder": app.Embedder.Ready(),
	}
	if err := app.SearchClient.Ping(c.Ctx.Request.Context()); err != nil {
		status["status"] = "degraded"
		status["elasticsearch"] = err.Error()
		c.JSON(http.StatusOK, map[string]interface{}{"success": true, "data": status})
		return
	}
	status["elasticsearch"] = "ok"

	if app.DecisionCache != nil {
		status["decision_cache"] = app.DecisionCache.Stats()
	}

	c.JSONSuccess(status)
}

// MetricsController 指标控制器
type MetricsController struct {
	BaseController
	metricsService *services.MetricsService
}

// Prepare 初始化控制器
func (c *MetricsController) Prepare() {
	c.metricsService = services.NewMetricsService()
}

// Metrics 返回Prometheus格式的指标
func (c *MetricsController) Metrics() {
	c.Ctx.Output.Header("Content-Type", "text/plain; charset=utf-8")
	c.metricsService.ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}
