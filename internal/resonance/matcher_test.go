package resonance

import (
	"context"
	"testing"

	"github.com/dreamcapture/backend/internal/oracle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMatcher(mock *oracle.Mock) *Matcher {
	return &Matcher{Oracle: mock, Log: zap.NewNop()}
}

func TestRefineSkipsAtOrBelowThreshold(t *testing.T) {
	mock := &oracle.Mock{Refined: &oracle.Refinement{Score: 90}}
	m := testMatcher(mock)

	in := oracle.RefineInput{DreamTags: []string{"a"}, MomentTags: []string{"a", "b", "c", "d", "e"}}
	assert.Nil(t, m.refine(context.Background(), in, 1, 2, escalateThreshold))
	assert.Nil(t, m.refine(context.Background(), in, 1, 2, 0))

	// no oracle spend for candidates under the bar
	assert.Empty(t, mock.Calls)
}

func TestRefineEscalatesAboveThreshold(t *testing.T) {
	mock := &oracle.Mock{Refined: &oracle.Refinement{Score: 74, Explanation: "both reach for open sky"}}
	m := testMatcher(mock)

	in := oracle.RefineInput{DreamTags: []string{"flight", "city"}, MomentTags: []string{"flight", "ocean"}}
	ref := m.refine(context.Background(), in, 1, 2, 33)

	require.NotNil(t, ref)
	assert.Equal(t, 74, ref.Score)
	assert.Equal(t, []string{"refine"}, mock.Calls)
}

func TestRefineDiscardsOnOracleFailure(t *testing.T) {
	mock := &oracle.Mock{RefineErr: oracle.ErrOracle}
	m := testMatcher(mock)

	ref := m.refine(context.Background(), oracle.RefineInput{}, 1, 2, 33)

	// the candidate is dropped, not retried and not stored
	assert.Nil(t, ref)
	assert.Equal(t, []string{"refine"}, mock.Calls)
}
