package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTagSimilarity_Jaccard tests the Jaccard index computation.
func TestTagSimilarity_Jaccard(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     []string
		expected float64
	}{
		{"identical sets", []string{TagLove, TagWork}, []string{TagLove, TagWork}, 1.0},
		{"disjoint sets", []string{TagLove}, []string{TagWork}, 0.0},
		{"half overlap", []string{TagLove, TagMoney}, []string{TagLove}, 0.5},
		{"one of three", []string{TagLove, TagWork, TagMoney}, []string{TagLove}, 1.0 / 3.0},
		{"empty left", nil, []string{TagLove}, 0.0},
		{"empty right", []string{TagLove}, nil, 0.0},
		{"both empty", nil, nil, 0.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, TagSimilarity(tc.a, tc.b), 1e-9)
		})
	}
}

// TestTagSimilarity_Symmetry tests score(A,B) == score(B,A).
func TestTagSimilarity_Symmetry(t *testing.T) {
	pairs := [][2][]string{
		{{TagLove, TagMoney}, {TagLove}},
		{{TagWork}, {TagWork, TagFuture, TagHealth}},
		{{TagOther}, {TagLove, TagWork}},
	}
	for _, pair := range pairs {
		assert.Equal(t, TagSimilarity(pair[0], pair[1]), TagSimilarity(pair[1], pair[0]))
	}
}

// TestTagSimilarity_SetSemantics tests that repeated entries do not
// inflate the score: the contract is over sets, not multisets.
func TestTagSimilarity_SetSemantics(t *testing.T) {
	plain := TagSimilarity([]string{TagLove, TagMoney}, []string{TagLove})
	repeated := TagSimilarity([]string{TagLove, TagLove, TagMoney}, []string{TagLove, TagLove, TagLove})
	assert.Equal(t, plain, repeated)
}

// TestTagSimilarity_Range tests that all scores fall in [0, 1].
func TestTagSimilarity_Range(t *testing.T) {
	sets := [][]string{
		nil,
		{TagLove},
		{TagLove, TagWork},
		{TagLove, TagWork, TagMoney, TagHealth, TagFuture, TagRelationships, TagOther},
	}
	for _, a := range sets {
		for _, b := range sets {
			score := TagSimilarity(a, b)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}
