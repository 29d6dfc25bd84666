package resonance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawScoreBoundaries(t *testing.T) {
	assert.Equal(t, 0, RawScore(nil, []string{"a"}))
	assert.Equal(t, 0, RawScore([]string{"a"}, nil))
	assert.Equal(t, 0, RawScore([]string{"a", "b"}, []string{"c", "d"}))
	assert.Equal(t, 100, RawScore([]string{"a", "b"}, []string{"b", "a"}))
}

func TestRawScorePartialOverlap(t *testing.T) {
	// |{flight}| / |{flight,city,ocean}| = 1/3
	score := RawScore([]string{"flight", "city"}, []string{"flight", "ocean"})
	assert.Equal(t, 33, score)
	assert.Greater(t, score, escalateThreshold)
}

func TestRawScoreSymmetric(t *testing.T) {
	a := []string{"x", "y", "z"}
	b := []string{"y", "q"}
	assert.Equal(t, RawScore(a, b), RawScore(b, a))
}

func TestRawScoreIgnoresDuplicates(t *testing.T) {
	assert.Equal(t, 100, RawScore([]string{"a", "a", "b"}, []string{"b", "a", "b"}))
	assert.Equal(t, 33, RawScore([]string{"a", "a", "b"}, []string{"a", "c", "c"}))
}

func TestBestCandidate(t *testing.T) {
	target := []string{"flight", "city", "night"}
	cands := []candidate{
		{id: 1, tags: []string{"ocean"}},
		{id: 2, tags: []string{"flight", "city", "night"}},
		{id: 3, tags: []string{"flight", "ocean"}},
	}

	id, score := bestCandidate(target, cands)
	assert.Equal(t, uint64(2), id)
	assert.Equal(t, 100, score)
}

func TestBestCandidateNoOverlap(t *testing.T) {
	id, score := bestCandidate([]string{"a"}, []candidate{
		{id: 1, tags: []string{"b"}},
		{id: 2, tags: nil},
	})
	assert.Equal(t, uint64(0), id)
	assert.Equal(t, 0, score)
}
