package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/modhub/moderation-go/internal/logger"
)

// ErrEmptyText 分类输入文本为空时请求被拒绝
var ErrEmptyText = errors.New("text is required")

// 诊断码
const (
	// ReasonNoSeedMatch 种子集为空或过滤后无候选
	ReasonNoSeedMatch = "no_seed_match"
	// ReasonSeedIndexUnavailable 种子检索失败，降级为放行
	ReasonSeedIndexUnavailable = "seed_index_unavailable"
)

// ClassificationResult 单次分类结果，仅随请求计算，不落盘
type ClassificationResult struct {
	Block      bool     `json:"block"`
	Label      *string  `json:"label"`
	Similarity *float64 `json:"similarity"`
	Distance   *float64 `json:"distance"`
	Threshold  float64  `json:"threshold"`
	Reason     string   `json:"reason,omitempty"`
}

// SeedSearcher 分类器依赖的种子检索能力
type SeedSearcher interface {
	TopMatches(ctx context.Context, vector []float32, k, numCandidates int, labels []string) ([]SeedMatch, error)
}

// ClassifierOptions 分类器参数
type ClassifierOptions struct {
	DefaultThreshold float64
	K                int
	NumCandidates    int
}

// Classifier 基于最近邻相似度的拦截判定。
// 自身无状态，仅组合向量化与种子检索
type Classifier struct {
	embedder Embedder
	seeds    SeedSearcher
	opts     ClassifierOptions
}

// NewClassifier 创建分类器
func NewClassifier(embedder Embedder, seeds SeedSearcher, opts ClassifierOptions) *Classifier {
	if opts.DefaultThreshold <= 0 {
		opts.DefaultThreshold = 0.8
	}
	if opts.K <= 0 {
		opts.K = 1
	}
	if opts.NumCandidates < opts.K {
		opts.NumCandidates = 100
	}
	return &Classifier{
		embedder: embedder,
		seeds:    seeds,
		opts:     opts,
	}
}

// DefaultThreshold 返回配置的默认阈值
func (c *Classifier) DefaultThreshold() float64 {
	return c.opts.DefaultThreshold
}

// ResolveThreshold 从任意JSON形态解析阈值。缺失或无法解析时使用默认值，从不报错
func (c *Classifier) ResolveThreshold(raw interface{}) float64 {
	switch v := raw.(type) {
	case nil:
		return c.opts.DefaultThreshold
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return c.opts.DefaultThreshold
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
		return c.opts.DefaultThreshold
	default:
		return c.opts.DefaultThreshold
	}
}

// ResolveLabels 解析标签过滤。单标签优先，其次标签列表，空白条目剔除。
// 空/无效输入视为不过滤
func ResolveLabels(label string, labels []string) []string {
	if strings.TrimSpace(label) != "" {
		return []string{label}
	}

	cleaned := make([]string, 0, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l) != "" {
			cleaned = append(cleaned, l)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

// Classify 判定输入是否应被拦截。
// 输入作为query角色向量化后对种子做top-1近邻检索，
// 命中分数按余弦相似度解释，similarity >= threshold 即拦截。
// 检索失败降级为放行结果（fail-open），向量化失败则直接报错
func (c *Classifier) Classify(ctx context.Context, text string, threshold float64, labels []string) (*ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	vector, err := c.embedder.Embed(ctx, text, EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed input: %w", err)
	}

	matches, err := c.seeds.TopMatches(ctx, vector, c.opts.K, c.opts.NumCandidates, labels)
	if err != nil {
		// 检索故障不向调用方传播，降级为未命中并通过reason标记
		logger.Warn("seed knn query failed, failing open",
			zap.Error(err),
			zap.Float64("threshold", threshold))
		return &ClassificationResult{
			Block:     false,
			Threshold: threshold,
			Reason:    ReasonSeedIndexUnavailable,
		}, nil
	}

	if len(matches) == 0 {
		return &ClassificationResult{
			Block:     false,
			Threshold: threshold,
			Reason:    ReasonNoSeedMatch,
		}, nil
	}

	top := matches[0]
	similarity := top.Similarity
	distance := 1.0 - similarity
	label := top.Label

	// 相似度型指标用>=比较，距离型才需要反向
	return &ClassificationResult{
		Block:      similarity >= threshold,
		Label:      &label,
		Similarity: &similarity,
		Distance:   &distance,
		Threshold:  threshold,
	}, nil
}
