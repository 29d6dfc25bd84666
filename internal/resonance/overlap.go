package resonance

// RawScore is the first-pass resonance filter: tag-set Jaccard overlap
// scaled to 0..100. Cheap, exact, symmetric, no external calls. Either
// side empty scores 0.
func RawScore(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	inter := 0
	for _, t := range b {
		if _, dup := setB[t]; dup {
			continue
		}
		setB[t] = struct{}{}
		if _, ok := setA[t]; ok {
			inter++
		}
	}

	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return inter * 100 / union
}

type candidate struct {
	id   uint64
	tags []string
}

// bestCandidate picks the single highest-raw-score candidate. Only one
// candidate per new item is ever escalated to the oracle.
func bestCandidate(tags []string, cands []candidate) (uint64, int) {
	bestID, bestScore := uint64(0), 0
	for _, c := range cands {
		if s := RawScore(tags, c.tags); s > bestScore {
			bestID, bestScore = c.id, s
		}
	}
	return bestID, bestScore
}
