package matching

// TagSimilarity computes the Jaccard index of two tag sets: the size of
// their intersection divided by the size of their union, in [0, 1].
// It is symmetric and deterministic. Duplicate entries collapse; the
// computation follows true set semantics regardless of input repetition.
//
// An empty side scores 0. ExtractTags never produces an empty set, so
// that case only arises for direct callers.
func TagSimilarity(tagsA, tagsB []string) float64 {
	if len(tagsA) == 0 || len(tagsB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(tagsA))
	for _, tag := range tagsA {
		setA[tag] = true
	}
	setB := make(map[string]bool, len(tagsB))
	for _, tag := range tagsB {
		setB[tag] = true
	}

	intersection := 0
	for tag := range setA {
		if setB[tag] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}
