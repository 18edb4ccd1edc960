package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhrase(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace", "  click here to win  ", "click here to win"},
		{"collapses inner runs", "click \t here\n\nto   win", "click here to win"},
		{"strips trailing period", "free money.", "free money"},
		{"strips repeated terminal punctuation", "free money?!?!", "free money"},
		{"strips ellipsis", "당첨되셨습니다…", "당첨되셨습니다"},
		{"strips east asian punctuation", "지금 클릭하세요。！？", "지금 클릭하세요"},
		{"keeps inner punctuation", "click. here to win!", "click. here to win"},
		{"casefolds latin", "CLICK Here To WIN", "click here to win"},
		{"casefolds cyrillic", "ПРИВЕТ Мир?", "привет мир"},
		{"casefolds sharp s", "Straße.", "strasse"},
		{"punctuation only", "?!。", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePhrase(tc.in))
		})
	}
}

func TestNormalizePhraseIdempotent(t *testing.T) {
	inputs := []string{
		"  Click HERE to win!!! ",
		"무료   쿠폰 받으세요。",
		"Straße...",
		"ПРИВЕТ,   мир…",
		"already normalized",
	}
	for _, in := range inputs {
		once := NormalizePhrase(in)
		assert.Equal(t, once, NormalizePhrase(once), "normalize must be idempotent for %q", in)
	}
}

func TestNormalizePhraseConcurrent(t *testing.T) {
	// 规范化在请求goroutine中并发调用，结果必须稳定
	inputs := []string{"Click HERE to win!", "무료 쿠폰 받으세요。", "Straße..."}
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				for _, in := range inputs {
					out := NormalizePhrase(in)
					assert.Equal(t, NormalizePhrase(in), out)
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}

func TestSeedIdentity(t *testing.T) {
	a := SeedIdentity("spam", "click here to win")
	b := SeedIdentity("spam", "click here to win")
	assert.Equal(t, a, b, "identity must be deterministic")
	assert.Len(t, a, 40, "sha1 hex digest")

	// label参与身份：同短语不同label是不同种子
	assert.NotEqual(t, a, SeedIdentity("scam", "click here to win"))
	assert.NotEqual(t, a, SeedIdentity("spam", "click here to win now"))

	// 规范化后相同的原始短语落在同一身份键
	assert.Equal(t,
		SeedIdentity("spam", NormalizePhrase("Click HERE to win!")),
		SeedIdentity("spam", NormalizePhrase("  click here to win ")),
	)
}
