package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modhub/moderation-go/internal/config"
	"github.com/modhub/moderation-go/internal/database"
	"github.com/modhub/moderation-go/internal/moderation"
)

// DecisionCache 分类结果的Redis缓存。
// 只服务读路径，任何缓存故障都按未命中处理，绝不阻塞分类请求
type DecisionCache struct {
	client   *redis.Client
	enabled  bool
	ttl      time.Duration
	hitStats *CacheHitStats
}

// CacheHitStats 缓存命中率统计
type CacheHitStats struct {
	hits   int64
	misses int64
	mu     sync.RWMutex
}

func (s *CacheHitStats) recordHit() {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
}

func (s *CacheHitStats) recordMiss() {
	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
}

// Snapshot 返回当前命中/未命中计数
func (s *CacheHitStats) Snapshot() (hits, misses int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits, s.misses
}

// NewDecisionCache 创建分类结果缓存服务
func NewDecisionCache() (*DecisionCache, error) {
	cfg := config.AppConfig
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	if !cfg.Redis.Enabled || database.RedisClient == nil {
		return &DecisionCache{enabled: false, hitStats: &CacheHitStats{}}, nil
	}

	ttl := time.Duration(cfg.Redis.TTL) * time.Second
	if ttl == 0 {
		ttl = 300 * time.Second // 默认5分钟
	}

	return &DecisionCache{
		client:   database.RedisClient,
		enabled:  true,
		ttl:      ttl,
		hitStats: &CacheHitStats{},
	}, nil
}

// Enabled 缓存是否可用
func (c *DecisionCache) Enabled() bool {
	return c.enabled && c.client != nil
}

// DecisionKey 由输入文本、阈值与标签过滤派生的确定性缓存键。
// 标签先排序，保证同一过滤集合的不同顺序命中同一键
func DecisionKey(text string, threshold float64, labels []string) string {
	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.Strings(sorted)

	raw := fmt.Sprintf("%s|%.6f|%s", text, threshold, strings.Join(sorted, ","))
	sum := sha1.Sum([]byte(raw))
	return "modguard:decision:" + hex.EncodeToString(sum[:])
}

// Get 读取缓存的分类结果。未启用、未命中或反序列化失败都返回nil
func (c *DecisionCache) Get(ctx context.Context, key string) *moderation.ClassificationResult {
	if !c.Enabled() {
		return nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		c.hitStats.recordMiss()
		return nil
	}

	var result moderation.ClassificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.hitStats.recordMiss()
		return nil
	}

	c.hitStats.recordHit()
	return &result
}

// Set 写入分类结果。降级结果不缓存，避免把故障期间的放行固化下来
func (c *DecisionCache) Set(ctx context.Context, key string, result *moderation.ClassificationResult) {
	if !c.Enabled() || result == nil {
		return
	}
	if result.Reason == moderation.ReasonSeedIndexUnavailable {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, data, c.ttl)
}

// Stats 返回命中率统计
func (c *DecisionCache) Stats() map[string]interface{} {
	hits, misses := c.hitStats.Snapshot()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return map[string]interface{}{
		"enabled":  c.Enabled(),
		"hits":     hits,
		"misses":   misses,
		"hit_rate": hitRate,
	}
}
