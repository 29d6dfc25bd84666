package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dreamcapture/backend/internal/oracle"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDecodeValidRejectsBadJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/dreams", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	var body createDreamReq
	assert.False(t, decodeValid(w, req, &body))
	assert.Equal(t, 400, w.Code)
}

func TestDecodeValidRejectsShortDescription(t *testing.T) {
	req := httptest.NewRequest("POST", "/dreams", strings.NewReader(`{"description":"short"}`))
	w := httptest.NewRecorder()

	var body createDreamReq
	assert.False(t, decodeValid(w, req, &body))
	assert.Equal(t, 400, w.Code)
}

func TestDecodeValidAcceptsDream(t *testing.T) {
	req := httptest.NewRequest("POST", "/dreams", strings.NewReader(
		`{"description":"I dreamed of a long road through the clouds","ttl_days":7}`))
	w := httptest.NewRecorder()

	var body createDreamReq
	assert.True(t, decodeValid(w, req, &body))
	assert.Equal(t, 7, body.TTLDays)
}

func TestDecodeValidRejectsBadMediaType(t *testing.T) {
	req := httptest.NewRequest("POST", "/moments", strings.NewReader(
		`{"media_type":"audio","media_url":"/uploads/x.mp3"}`))
	w := httptest.NewRecorder()

	var body createMomentReq
	assert.False(t, decodeValid(w, req, &body))
}

func TestModerationFailsOpen(t *testing.T) {
	h := &DreamHandler{
		Oracle:        &oracle.Mock{Err: oracle.ErrOracle},
		Log:           zap.NewNop(),
		OracleTimeout: time.Second,
	}
	// an unreachable moderation endpoint must not block submission
	assert.False(t, h.moderationRejects(context.Background(), "some text"))
}

func TestModerationFlagged(t *testing.T) {
	h := &DreamHandler{
		Oracle:        &oracle.Mock{Flagged: true},
		Log:           zap.NewNop(),
		OracleTimeout: time.Second,
	}
	assert.True(t, h.moderationRejects(context.Background(), "some text"))
}

func TestPaginationDefaultsAndCaps(t *testing.T) {
	r := httptest.NewRequest("GET", "/dreams", nil)
	skip, limit := pagination(r)
	assert.Equal(t, 0, skip)
	assert.Equal(t, 20, limit)

	r = httptest.NewRequest("GET", "/dreams?skip=40&limit=500", nil)
	skip, limit = pagination(r)
	assert.Equal(t, 40, skip)
	assert.Equal(t, 20, limit) // over-cap limit falls back to default

	r = httptest.NewRequest("GET", "/dreams?skip=-1&limit=50", nil)
	skip, limit = pagination(r)
	assert.Equal(t, 0, skip)
	assert.Equal(t, 50, limit)
}
