package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/modhub/moderation-go/internal/config"
	"github.com/modhub/moderation-go/internal/database"
	"github.com/modhub/moderation-go/internal/logger"
	"github.com/modhub/moderation-go/internal/moderation"
	"github.com/modhub/moderation-go/internal/search"
	"github.com/modhub/moderation-go/internal/services"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	SearchClient  *search.Client
	Embedder      moderation.Embedder
	SeedStore     *moderation.SeedStore
	MessageStore  *moderation.MessageStore
	Classifier    *moderation.Classifier
	DecisionCache *services.DecisionCache

	cleanupTasks []func() error
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// SetGlobalApp sets the global app instance
func SetGlobalApp(app *App) {
	globalApp = app
}

// Init bootstraps configuration, logger, the search backend and the moderation
// components required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	app := &App{}

	searchClient, err := search.NewClient(cfg.Elasticsearch)
	if err != nil {
		return nil, err
	}
	app.SearchClient = searchClient

	// 全局唯一的Embedder实例，写入与查询共用，保证角色策略一致
	app.Embedder = moderation.NewOpenAIEmbedder(cfg.Embedding)
	if !app.Embedder.Ready() {
		logger.Warn("embedding provider not configured, embedding-backed endpoints will fail")
	}

	app.SeedStore = moderation.NewSeedStore(searchClient, app.Embedder, cfg.Indices.Seeds, cfg.Classifier.LabelAggSize)
	app.MessageStore = moderation.NewMessageStore(searchClient, app.Embedder, cfg.Indices.Messages)
	app.Classifier = moderation.NewClassifier(app.Embedder, app.SeedStore, moderation.ClassifierOptions{
		DefaultThreshold: cfg.Classifier.Threshold,
		K:                cfg.Classifier.K,
		NumCandidates:    cfg.Classifier.NumCandidates,
	})

	if app.Embedder.Ready() {
		if err := ensureIndices(app, cfg); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("Skipping index bootstrap: embedding dimensions unknown without a provider")
	}

	// Optional redis-backed decision cache.
	if cfg.Redis.Enabled {
		if _, err := database.InitRedis(); err != nil {
			logger.Warn("Failed to initialize Redis, decision cache disabled", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, database.CloseRedis)
		}
	}
	cache, err := services.NewDecisionCache()
	if err != nil {
		return nil, err
	}
	app.DecisionCache = cache

	app.cleanupTasks = append(app.cleanupTasks, func() error {
		logger.Sync()
		return nil
	})

	SetGlobalApp(app)
	return app, nil
}

// ensureIndices 确保两个索引存在，并在需要时写入默认种子。
// 建索引与默认种子引导是两个独立操作：引导本身幂等，可安全重复执行
func ensureIndices(app *App, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := app.MessageStore.EnsureIndex(ctx); err != nil {
		return err
	}

	created, err := app.SeedStore.EnsureIndex(ctx)
	if err != nil {
		return err
	}
	if created {
		logger.Info("Created seed index", zap.String("index", app.SeedStore.Index()))
	}

	if cfg.Seeds.DefaultsFile == "" {
		return nil
	}

	defaults, err := moderation.LoadDefaultSeeds(cfg.Seeds.DefaultsFile)
	if err != nil {
		return err
	}
	if err := app.SeedStore.BootstrapDefaults(ctx, defaults); err != nil {
		return err
	}
	logger.Info("Bootstrapped default seeds",
		zap.String("file", cfg.Seeds.DefaultsFile),
		zap.Int("labels", len(defaults)))
	return nil
}

// Shutdown runs the registered cleanup tasks in reverse order.
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			logger.Error("cleanup task failed", zap.Error(err))
		}
	}
}
