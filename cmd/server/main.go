package main

import (
	"log"
	"os"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/modhub/moderation-go/app/bootstrap"
	"github.com/modhub/moderation-go/app/router"
	"github.com/modhub/moderation-go/internal/config"
	"github.com/modhub/moderation-go/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	router.Init()

	// 配置Beego全局设置
	web.BConfig.AppName = "Moderation Gateway"
	web.BConfig.CopyRequestBody = true

	port := config.AppConfig.Server.Port
	if env := os.Getenv("SERVER_PORT"); env != "" {
		port = env
	}
	if p, err := strconv.Atoi(port); err == nil {
		web.BConfig.Listen.HTTPPort = p
	} else {
		web.BConfig.Listen.HTTPPort = 5001
	}

	logger.Info("🚀 Starting Moderation Gateway", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
