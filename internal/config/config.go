package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Elasticsearch ElasticsearchConfig
	Indices       IndicesConfig
	Embedding     EmbeddingConfig
	Classifier    ClassifierConfig
	Seeds         SeedsConfig
	Redis         RedisConfig
	Metrics       MetricsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
}

// IndicesConfig 索引名称配置
type IndicesConfig struct {
	Messages string
	Seeds    string
}

// EmbeddingConfig 向量化配置
type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	// Framing 编码角色策略: "e5"（query/passage前缀）或 "none"（对称编码）
	// 写入与查询必须使用同一策略，否则相似度分数不可比
	Framing string
}

// ClassifierConfig 分类器配置
type ClassifierConfig struct {
	Threshold     float64
	K             int
	NumCandidates int
	LabelAggSize  int
}

type SeedsConfig struct {
	DefaultsFile string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	TTL      int
}

type MetricsConfig struct {
	Enabled bool
}

var AppConfig *Config

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "5001")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	viper.SetDefault("elasticsearch.username", "")
	viper.SetDefault("elasticsearch.password", "")
	viper.SetDefault("elasticsearch.api_key", "")
	viper.SetDefault("indices.messages", "telegram-chats")
	viper.SetDefault("indices.seeds", "intent-seeds")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimensions", 768)
	viper.SetDefault("embedding.framing", "e5")
	viper.SetDefault("classifier.threshold", 0.8)
	viper.SetDefault("classifier.k", 1)
	viper.SetDefault("classifier.num_candidates", 100)
	viper.SetDefault("classifier.label_agg_size", 100)
	viper.SetDefault("seeds.defaults_file", "")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", 300)
	viper.SetDefault("metrics.enabled", true)

	// 读取环境变量
	viper.SetEnvPrefix("MODGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 兼容原部署使用的环境变量名
	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if host := os.Getenv("ES_HOST"); host != "" {
		addresses := strings.Split(host, ",")
		for i := range addresses {
			addresses[i] = strings.TrimSpace(addresses[i])
		}
		viper.Set("elasticsearch.addresses", addresses)
	}
	if user := os.Getenv("ES_USER"); user != "" {
		viper.Set("elasticsearch.username", user)
	}
	if password := os.Getenv("ES_PASSWORD"); password != "" {
		viper.Set("elasticsearch.password", password)
	}
	if name := os.Getenv("TELEGRAM_CHATS_INDEX_NAME"); name != "" {
		viper.Set("indices.messages", name)
	}
	if name := os.Getenv("SEED_INDEX_NAME"); name != "" {
		viper.Set("indices.seeds", name)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		viper.Set("embedding.api_key", key)
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		viper.Set("embedding.base_url", baseURL)
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		viper.Set("embedding.model", model)
	}
	if dims := os.Getenv("EMBEDDING_DIMENSIONS"); dims != "" {
		if n, err := strconv.Atoi(dims); err == nil && n > 0 {
			viper.Set("embedding.dimensions", n)
		}
	}
	if framing := os.Getenv("EMBEDDING_FRAMING"); framing != "" {
		viper.Set("embedding.framing", framing)
	}
	if threshold := os.Getenv("BLOCK_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			viper.Set("classifier.threshold", v)
		}
	}
	if file := os.Getenv("SEED_DEFAULTS_FILE"); file != "" {
		viper.Set("seeds.defaults_file", file)
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		viper.Set("redis.host", redisHost)
		viper.Set("redis.enabled", true)
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		viper.Set("redis.port", redisPort)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return err
	}

	AppConfig = cfg
	return nil
}

func validate(cfg *Config) error {
	if len(cfg.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("elasticsearch addresses not configured")
	}
	if cfg.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Embedding.Dimensions)
	}
	switch cfg.Embedding.Framing {
	case "e5", "none":
	default:
		return fmt.Errorf("unknown embedding framing policy: %s", cfg.Embedding.Framing)
	}
	if cfg.Classifier.K <= 0 {
		cfg.Classifier.K = 1
	}
	if cfg.Classifier.NumCandidates < cfg.Classifier.K {
		cfg.Classifier.NumCandidates = cfg.Classifier.K
	}
	return nil
}
