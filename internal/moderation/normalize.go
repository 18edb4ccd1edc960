package moderation

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

// trailingPunct 句末标点集合，含常见东亚全角标点
var trailingPunct = map[rune]bool{
	'.': true,
	'!': true,
	'?': true,
	'。': true,
	'！': true,
	'？': true,
	'…': true,
}

// NormalizePhrase 将种子短语规范化为稳定的身份形式。
// 依次：去首尾空白、压缩连续空白为单个空格、去掉句末标点、大小写折叠。
// 仅用于元数据/身份计算，向量化始终使用原始短语
func NormalizePhrase(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")

	runes := []rune(s)
	end := len(runes)
	for end > 0 && trailingPunct[runes[end-1]] {
		end--
	}
	s = strings.TrimRight(string(runes[:end]), " ")

	// Caser有状态，不跨goroutine共享，每次调用新建
	return cases.Fold().String(s)
}

// SeedIdentity 计算种子文档的身份键：sha1(label + "|" + normalized)。
// 同一(label, 规范化短语)重复写入会覆盖而不是追加
func SeedIdentity(label, normalized string) string {
	sum := sha1.Sum([]byte(label + "|" + normalized))
	return hex.EncodeToString(sum[:])
}
