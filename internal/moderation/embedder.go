package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/modhub/moderation-go/internal/config"
)

// EmbedKind 文本在检索中的角色：查询或存储
type EmbedKind int

const (
	// EmbedQuery 实时用户输入
	EmbedQuery EmbedKind = iota
	// EmbedPassage 存储的参考文本（种子短语、聊天消息）
	EmbedPassage
)

// FramingPolicy 编码角色策略。写入与查询必须使用同一策略
type FramingPolicy string

const (
	// FramingE5 非对称策略：查询加"query: "前缀，存储文本加"passage: "前缀
	FramingE5 FramingPolicy = "e5"
	// FramingNone 对称策略：不加前缀，两侧编码方式相同
	FramingNone FramingPolicy = "none"
)

// Embedder 定义文本向量化接口。返回的向量保证为单位长度
type Embedder interface {
	Embed(ctx context.Context, text string, kind EmbedKind) ([]float32, error)
	Dimensions() int
	Ready() bool
}

// NoopEmbedder 默认占位实现
type NoopEmbedder struct{}

func (n *NoopEmbedder) Embed(ctx context.Context, text string, kind EmbedKind) ([]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func (n *NoopEmbedder) Dimensions() int {
	return 0
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

// OpenAIEmbedder 使用OpenAI Embedding API
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	framing    FramingPolicy
	limiter    sync.Mutex
}

// NewOpenAIEmbedder 创建嵌入向量生成器。
// 维度在请求中固定，保证同一部署下所有向量维度一致
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) Embedder {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return &NoopEmbedder{}
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 768
	}
	framing := FramingPolicy(cfg.Framing)
	if framing != FramingE5 && framing != FramingNone {
		framing = FramingE5
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		dimensions: dims,
		framing:    framing,
	}
}

// frame 按角色策略给文本加前缀。向量化使用完整原文，前缀只表达角色
func (e *OpenAIEmbedder) frame(text string, kind EmbedKind) string {
	if e.framing != FramingE5 {
		return text
	}
	if kind == EmbedQuery {
		return "query: " + text
	}
	return "passage: " + text
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, kind EmbedKind) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	if e.client == nil {
		return nil, errors.New("openai client not initialized")
	}

	e.limiter.Lock()
	defer e.limiter.Unlock()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:          openai.EmbeddingModel(e.model),
		Input:          []string{e.frame(text, kind)},
		Dimensions:     e.dimensions,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response empty")
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != e.dimensions {
		return nil, fmt.Errorf("unexpected embedding dimension: got %d, want %d", len(embedding), e.dimensions)
	}

	// 单位向量归一化，保证点积与余弦相似度一致
	return NormalizeL2(embedding)
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}
