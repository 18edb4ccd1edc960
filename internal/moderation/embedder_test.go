package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modhub/moderation-go/internal/config"
)

func TestNewOpenAIEmbedderWithoutKey(t *testing.T) {
	e := NewOpenAIEmbedder(config.EmbeddingConfig{})
	assert.False(t, e.Ready())
	assert.Equal(t, 0, e.Dimensions())

	_, err := e.Embed(context.Background(), "hello", EmbedQuery)
	assert.Error(t, err)
}

func TestNewOpenAIEmbedderDefaults(t *testing.T) {
	e := NewOpenAIEmbedder(config.EmbeddingConfig{APIKey: "test-key"})
	assert.True(t, e.Ready())
	assert.Equal(t, 768, e.Dimensions())
}

func TestFramingE5(t *testing.T) {
	e := &OpenAIEmbedder{framing: FramingE5}
	assert.Equal(t, "query: click here", e.frame("click here", EmbedQuery))
	assert.Equal(t, "passage: click here", e.frame("click here", EmbedPassage))
}

func TestFramingNone(t *testing.T) {
	// 对称策略下两侧编码输入完全一致
	e := &OpenAIEmbedder{framing: FramingNone}
	assert.Equal(t, "click here", e.frame("click here", EmbedQuery))
	assert.Equal(t, e.frame("click here", EmbedQuery), e.frame("click here", EmbedPassage))
}

func TestFramingUnknownFallsBackToE5(t *testing.T) {
	e := NewOpenAIEmbedder(config.EmbeddingConfig{APIKey: "test-key", Framing: "bogus"})
	oe, ok := e.(*OpenAIEmbedder)
	assert.True(t, ok)
	assert.Equal(t, FramingE5, oe.framing)
}

func TestEmbedRejectsBlankText(t *testing.T) {
	e := NewOpenAIEmbedder(config.EmbeddingConfig{APIKey: "test-key"})
	_, err := e.Embed(context.Background(), "   ", EmbedQuery)
	assert.Error(t, err)
}
