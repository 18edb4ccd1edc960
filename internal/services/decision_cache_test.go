package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modhub/moderation-go/internal/config"
	"github.com/modhub/moderation-go/internal/moderation"
)

func TestDecisionKeyDeterministic(t *testing.T) {
	a := DecisionKey("click here", 0.8, []string{"spam", "scam"})
	b := DecisionKey("click here", 0.8, []string{"spam", "scam"})
	assert.Equal(t, a, b)
	assert.Contains(t, a, "modguard:decision:")
}

func TestDecisionKeyLabelOrderInsensitive(t *testing.T) {
	a := DecisionKey("click here", 0.8, []string{"spam", "scam"})
	b := DecisionKey("click here", 0.8, []string{"scam", "spam"})
	assert.Equal(t, a, b, "same filter set must hit the same key regardless of order")
}

func TestDecisionKeyVariesByInputs(t *testing.T) {
	base := DecisionKey("click here", 0.8, []string{"spam"})
	assert.NotEqual(t, base, DecisionKey("click here now", 0.8, []string{"spam"}))
	assert.NotEqual(t, base, DecisionKey("click here", 0.9, []string{"spam"}))
	assert.NotEqual(t, base, DecisionKey("click here", 0.8, nil))
}

func TestDisabledCacheIsNoop(t *testing.T) {
	config.AppConfig = &config.Config{}
	cache, err := NewDecisionCache()
	require.NoError(t, err)
	assert.False(t, cache.Enabled())

	ctx := context.Background()
	key := DecisionKey("text", 0.8, nil)

	assert.Nil(t, cache.Get(ctx, key))

	result := &moderation.ClassificationResult{Block: true, Threshold: 0.8}
	cache.Set(ctx, key, result) // 未启用时静默忽略
	assert.Nil(t, cache.Get(ctx, key))

	stats := cache.Stats()
	assert.Equal(t, false, stats["enabled"])
}

func TestNewDecisionCacheRequiresConfig(t *testing.T) {
	old := config.AppConfig
	config.AppConfig = nil
	defer func() { config.AppConfig = old }()

	_, err := NewDecisionCache()
	assert.Error(t, err)
}

func TestCacheHitStats(t *testing.T) {
	stats := &CacheHitStats{}
	stats.recordHit()
	stats.recordHit()
	stats.recordMiss()

	hits, misses := stats.Snapshot()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}
