package matching

import "strings"

// Tag labels form a fixed, finite vocabulary. TagOther is the sentinel
// assigned when no lexicon keyword matches, so a tag set is never empty.
const (
	TagLove          = "恋愛"
	TagWork          = "仕事"
	TagRelationships = "人間関係"
	TagHealth        = "健康"
	TagMoney         = "お金"
	TagFuture        = "将来"
	TagOther         = "その他"
)

// lexiconEntry pairs a tag with its trigger keywords.
type lexiconEntry struct {
	tag      string
	keywords []string
}

// lexicon is the curated keyword table for tag extraction. Order is fixed
// so extraction output is deterministic for a given lexicon version.
var lexicon = []lexiconEntry{
	{TagLove, []string{"恋愛", "恋", "好き", "彼氏", "彼女", "パートナー", "片思い", "失恋"}},
	{TagWork, []string{"仕事", "職場", "転職", "キャリア", "上司", "同僚", "会社"}},
	{TagRelationships, []string{"友達", "友人", "家族", "親", "兄弟", "姉妹", "人間関係"}},
	{TagHealth, []string{"健康", "病気", "体調", "メンタル", "不安", "ストレス"}},
	{TagMoney, []string{"お金", "金銭", "経済", "貯金", "収入", "支出", "借金"}},
	{TagFuture, []string{"将来", "未来", "目標", "夢", "進路", "選択"}},
}

// ExtractTags converts free text into a set of topical tags by substring
// matching against the lexicon. The result is never empty: when nothing
// matches, it is exactly {TagOther}.
//
// Matching is plain substring containment, not word-boundary tokenization,
// so a keyword inside an unrelated longer word still counts. This is a
// known precision limitation carried over on purpose; tightening it would
// change which users match.
func ExtractTags(text string) []string {
	lower := strings.ToLower(text)

	var tags []string
	for _, entry := range lexicon {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				tags = append(tags, entry.tag)
				break
			}
		}
	}

	if len(tags) == 0 {
		return []string{TagOther}
	}
	return tags
}

// unionTags collapses tag slices into one deduplicated set, preserving
// first-seen order.
func unionTags(tagSets ...[]string) []string {
	seen := make(map[string]bool)
	var union []string
	for _, tags := range tagSets {
		for _, tag := range tags {
			if !seen[tag] {
				seen[tag] = true
				union = append(union, tag)
			}
		}
	}
	return union
}

// intersectTags returns the members of a that also appear in b,
// preserving a's order.
func intersectTags(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, tag := range b {
		inB[tag] = true
	}

	seen := make(map[string]bool)
	var common []string
	for _, tag := range a {
		if inB[tag] && !seen[tag] {
			seen[tag] = true
			common = append(common, tag)
		}
	}
	return common
}
