package moderation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/modhub/moderation-go/internal/search"
)

// ErrEmptyLabel label为空时种子写入被拒绝
var ErrEmptyLabel = errors.New("label is required")

// SeedUpsertOutcome 单条种子写入结果
type SeedUpsertOutcome struct {
	ID     string `json:"_id"`
	Result string `json:"result"` // created | updated
	Label  string `json:"label"`
	Phrase string `json:"phrase"`
}

// SeedMatch 种子近邻命中
type SeedMatch struct {
	Label      string
	Phrase     string
	Similarity float64
}

// LabelCount 标签及其种子数量
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// SeedStore 标签化种子短语的向量存储。
// 身份键为sha1(label|规范化短语)，重复写入同一键位覆盖而不是追加
type SeedStore struct {
	client       SearchBackend
	embedder     Embedder
	index        string
	labelAggSize int
}

// NewSeedStore 创建种子存储
func NewSeedStore(client SearchBackend, embedder Embedder, index string, labelAggSize int) *SeedStore {
	if index == "" {
		index = "intent-seeds"
	}
	if labelAggSize <= 0 {
		labelAggSize = 100
	}
	return &SeedStore{
		client:       client,
		embedder:     embedder,
		index:        index,
		labelAggSize: labelAggSize,
	}
}

// Index 返回种子索引名
func (s *SeedStore) Index() string {
	return s.index
}

func (s *SeedStore) mapping() map[string]interface{} {
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"label":             map[string]interface{}{"type": "keyword"},
				"phrase":            map[string]interface{}{"type": "text"},
				"phrase_normalized": map[string]interface{}{"type": "keyword"},
				"created_at":        map[string]interface{}{"type": "date"},
				"embedding": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       s.embedder.Dimensions(),
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
}

// EnsureIndex 确保种子索引存在。返回是否为本次新建，供默认种子引导判断
func (s *SeedStore) EnsureIndex(ctx context.Context) (bool, error) {
	if s.embedder.Dimensions() <= 0 {
		return false, errors.New("embedding dimensions not configured")
	}
	created, err := s.client.EnsureIndex(ctx, s.index, s.mapping())
	if err != nil {
		return false, fmt.Errorf("failed to ensure seed index: %w", err)
	}
	return created, nil
}

// UpsertSeeds 批量写入种子短语。空白条目静默跳过，单条坏数据不影响整批。
// 原始短语作为passage角色向量化，保留完整语义信号
func (s *SeedStore) UpsertSeeds(ctx context.Context, label string, phrases []string) ([]SeedUpsertOutcome, error) {
	if strings.TrimSpace(label) == "" {
		return nil, ErrEmptyLabel
	}

	outcomes := make([]SeedUpsertOutcome, 0, len(phrases))
	for _, phrase := range phrases {
		if strings.TrimSpace(phrase) == "" {
			continue
		}

		normalized := NormalizePhrase(phrase)
		id := SeedIdentity(label, normalized)

		vector, err := s.embedder.Embed(ctx, phrase, EmbedPassage)
		if err != nil {
			return outcomes, fmt.Errorf("failed to embed seed phrase: %w", err)
		}

		doc := map[string]interface{}{
			"label":             label,
			"phrase":            phrase,
			"phrase_normalized": normalized,
			"created_at":        time.Now().UTC().Format(time.RFC3339),
			"embedding":         vector,
		}

		result, err := s.client.Upsert(ctx, s.index, id, doc)
		if err != nil {
			return outcomes, fmt.Errorf("failed to index seed phrase: %w", err)
		}

		outcomes = append(outcomes, SeedUpsertOutcome{
			ID:     result.ID,
			Result: result.Result,
			Label:  label,
			Phrase: phrase,
		})
	}

	return outcomes, nil
}

// TopMatches 按相似度降序返回最多k个种子。
// labels非空时在索引层过滤，保证k个候选来自过滤后的子集。
// 无种子或全部被过滤时返回空列表，不是错误
func (s *SeedStore) TopMatches(ctx context.Context, vector []float32, k, numCandidates int, labels []string) ([]SeedMatch, error) {
	if k <= 0 {
		k = 1
	}
	if numCandidates < k {
		numCandidates = k
	}

	query := search.KnnQuery{
		Index:         s.index,
		Field:         "embedding",
		Vector:        vector,
		K:             k,
		NumCandidates: numCandidates,
		SourceFields:  []string{"label", "phrase"},
	}
	if len(labels) == 1 {
		query.Filter = map[string]interface{}{
			"term": map[string]interface{}{"label": labels[0]},
		}
	} else if len(labels) > 1 {
		query.Filter = map[string]interface{}{
			"terms": map[string]interface{}{"label": labels},
		}
	}

	result, err := s.client.KnnSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	matches := make([]SeedMatch, 0, len(result.Hits))
	for _, hit := range result.Hits {
		label, _ := hit.Source["label"].(string)
		phrase, _ := hit.Source["phrase"].(string)
		matches = append(matches, SeedMatch{
			Label:      label,
			Phrase:     phrase,
			Similarity: hit.Score,
		})
	}

	return matches, nil
}

// ListLabels 返回当前存在的标签及数量。空存储返回空列表
func (s *SeedStore) ListLabels(ctx context.Context) ([]LabelCount, error) {
	buckets, err := s.client.AggregateTerms(ctx, s.index, "label", s.labelAggSize)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate labels: %w", err)
	}

	labels := make([]LabelCount, 0, len(buckets))
	for _, bucket := range buckets {
		labels = append(labels, LabelCount{Label: bucket.Value, Count: bucket.Count})
	}
	return labels, nil
}

// BootstrapDefaults 写入部署提供的默认种子集。
// 依赖身份键覆盖语义，对同一默认集重复执行不会产生新文档
func (s *SeedStore) BootstrapDefaults(ctx context.Context, defaults map[string][]string) error {
	labels := make([]string, 0, len(defaults))
	for label := range defaults {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		if _, err := s.UpsertSeeds(ctx, label, defaults[label]); err != nil {
			return fmt.Errorf("failed to bootstrap seeds for label %q: %w", label, err)
		}
	}
	return nil
}

// LoadDefaultSeeds 读取默认种子文件（YAML: label → 短语列表）
func LoadDefaultSeeds(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed defaults file: %w", err)
	}

	defaults := make(map[string][]string)
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return nil, fmt.Errorf("failed to parse seed defaults file: %w", err)
	}
	return defaults, nil
}
