package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/modhub/moderation-go/app/controllers"
	"github.com/modhub/moderation-go/internal/config"
)

// Init 注册全部路由。必须在配置加载之后调用
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	// 消息入库与回取
	messageController := &controllers.MessageController{}
	web.Router("/api/messages", messageController, "post:Ingest")
	web.Router("/api/messages/:chat_id/:message_id", messageController, "get:Get")

	// 种子短语管理
	seedController := &controllers.SeedController{}
	web.Router("/api/seeds", seedController, "post:Add")
	web.Router("/api/seeds/labels", seedController, "get:Labels")

	// 拦截判定
	web.Router("/api/filter/check", &controllers.FilterController{}, "post:Check")

	if config.AppConfig != nil && config.AppConfig.Metrics.Enabled {
		web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")
	}
}
