package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSeedSearcher 返回预置命中的SeedSearcher替身
type fakeSeedSearcher struct {
	matches    []SeedMatch
	err        error
	lastLabels []string
	lastK      int
	lastPool   int
}

func (f *fakeSeedSearcher) TopMatches(ctx context.Context, vector []float32, k, numCandidates int, labels []string) ([]SeedMatch, error) {
	f.lastLabels = labels
	f.lastK = k
	f.lastPool = numCandidates
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func newTestClassifier(seeds SeedSearcher) *Classifier {
	return NewClassifier(newFakeEmbedder(), seeds, ClassifierOptions{
		DefaultThreshold: 0.8,
		K:                1,
		NumCandidates:    100,
	})
}

func TestClassifyRejectsBlankText(t *testing.T) {
	c := newTestClassifier(&fakeSeedSearcher{})

	_, err := c.Classify(context.Background(), "   ", 0.8, nil)
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClassifyEmptySeedStoreFailsOpen(t *testing.T) {
	c := newTestClassifier(&fakeSeedSearcher{})

	result, err := c.Classify(context.Background(), "any text at all", 0.8, nil)
	require.NoError(t, err)
	assert.False(t, result.Block)
	assert.Nil(t, result.Label)
	assert.Nil(t, result.Similarity)
	assert.Nil(t, result.Distance)
	assert.Equal(t, 0.8, result.Threshold)
	assert.Equal(t, ReasonNoSeedMatch, result.Reason)
}

func TestClassifyQueryFailureFailsOpen(t *testing.T) {
	c := newTestClassifier(&fakeSeedSearcher{err: errors.New("index unavailable")})

	result, err := c.Classify(context.Background(), "some input", 0.8, nil)
	require.NoError(t, err, "backend failure must not propagate on the read path")
	assert.False(t, result.Block)
	assert.Equal(t, ReasonSeedIndexUnavailable, result.Reason)
}

func TestClassifyEmbeddingFailurePropagates(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.failEmbed = true
	c := NewClassifier(embedder, &fakeSeedSearcher{}, ClassifierOptions{DefaultThreshold: 0.8})

	_, err := c.Classify(context.Background(), "some input", 0.8, nil)
	assert.Error(t, err)
}

func TestClassifyBlocksAboveThreshold(t *testing.T) {
	seeds := &fakeSeedSearcher{matches: []SeedMatch{
		{Label: "spam", Phrase: "click here to win", Similarity: 0.92},
	}}
	c := newTestClassifier(seeds)

	result, err := c.Classify(context.Background(), "click here to win now", 0.8, nil)
	require.NoError(t, err)
	assert.True(t, result.Block)
	require.NotNil(t, result.Label)
	assert.Equal(t, "spam", *result.Label)
	assert.InDelta(t, 0.92, *result.Similarity, 1e-9)
	assert.InDelta(t, 0.08, *result.Distance, 1e-9)
	assert.Empty(t, result.Reason)
	assert.Equal(t, 1, seeds.lastK)
	assert.Equal(t, 100, seeds.lastPool)
}

func TestClassifyAllowsBelowThreshold(t *testing.T) {
	seeds := &fakeSeedSearcher{matches: []SeedMatch{
		{Label: "spam", Phrase: "click here to win", Similarity: 0.42},
	}}
	c := newTestClassifier(seeds)

	result, err := c.Classify(context.Background(), "what time is dinner", 0.8, nil)
	require.NoError(t, err)
	assert.False(t, result.Block)
	require.NotNil(t, result.Label)
	assert.Equal(t, "spam", *result.Label)
}

func TestClassifyThresholdBoundaryInclusive(t *testing.T) {
	seeds := &fakeSeedSearcher{matches: []SeedMatch{{Label: "spam", Similarity: 0.8}}}
	c := newTestClassifier(seeds)

	result, err := c.Classify(context.Background(), "input", 0.8, nil)
	require.NoError(t, err)
	assert.True(t, result.Block, "similarity == threshold must block (>= comparison)")
}

func TestClassifyThresholdMonotonicity(t *testing.T) {
	// 相似度固定时，提高阈值只能把block从true翻到false
	seeds := &fakeSeedSearcher{matches: []SeedMatch{{Label: "spam", Similarity: 0.85}}}
	c := newTestClassifier(seeds)
	ctx := context.Background()

	blocked := true
	for _, threshold := range []float64{0.5, 0.7, 0.85, 0.9, 0.99} {
		result, err := c.Classify(ctx, "input", threshold, nil)
		require.NoError(t, err)
		if result.Block {
			assert.True(t, blocked, "block must not flip back to true as threshold rises")
		}
		blocked = result.Block
	}
}

func TestClassifyForwardsLabelFilter(t *testing.T) {
	seeds := &fakeSeedSearcher{matches: []SeedMatch{{Label: "labelA", Similarity: 0.9}}}
	c := newTestClassifier(seeds)

	result, err := c.Classify(context.Background(), "input", 0.8, []string{"labelA"})
	require.NoError(t, err)
	assert.Equal(t, []string{"labelA"}, seeds.lastLabels)
	require.NotNil(t, result.Label)
	assert.Equal(t, "labelA", *result.Label)
}

func TestClassifyEmbedsInputAsQuery(t *testing.T) {
	embedder := newFakeEmbedder()
	c := NewClassifier(embedder, &fakeSeedSearcher{}, ClassifierOptions{DefaultThreshold: 0.8})

	_, err := c.Classify(context.Background(), "input", 0.8, nil)
	require.NoError(t, err)
	assert.Equal(t, EmbedQuery, embedder.lastKind)
}

func TestResolveThreshold(t *testing.T) {
	c := newTestClassifier(&fakeSeedSearcher{})

	cases := []struct {
		name string
		raw  interface{}
		want float64
	}{
		{"nil uses default", nil, 0.8},
		{"float64", 0.75, 0.75},
		{"int", 1, 1.0},
		{"numeric string", "0.9", 0.9},
		{"padded string", " 0.65 ", 0.65},
		{"garbage string uses default", "high", 0.8},
		{"bool uses default", true, 0.8},
		{"json number", json.Number("0.55"), 0.55},
		{"bad json number uses default", json.Number("abc"), 0.8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.ResolveThreshold(tc.raw))
		})
	}
}

func TestResolveLabels(t *testing.T) {
	assert.Nil(t, ResolveLabels("", nil))
	assert.Nil(t, ResolveLabels("  ", []string{"", "  "}))
	assert.Equal(t, []string{"spam"}, ResolveLabels("spam", nil))
	// 单label优先于labels列表
	assert.Equal(t, []string{"spam"}, ResolveLabels("spam", []string{"scam"}))
	assert.Equal(t, []string{"a", "b"}, ResolveLabels("", []string{"a", "", "b", " "}))
}
