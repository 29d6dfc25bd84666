package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

func testClient(url string) *HTTPClient {
	return NewHTTPClient(url, "test-key", "test-model", "test-image-model", 2*time.Second)
}

func TestAnalyzeDream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		analysis := `{"themes":["journey"],"emotions":["wonder"],"symbols":["road"],"narrative":"a path opens","tags":["journey","road"],"visual_prompt":"a winding road"}`
		_, _ = w.Write([]byte(completionBody(analysis)))
	}))
	defer srv.Close()

	out, err := testClient(srv.URL).AnalyzeDream(context.Background(), "I walked a long road")
	require.NoError(t, err)
	assert.Equal(t, []string{"journey", "road"}, out.Tags)
	assert.Equal(t, "a winding road", out.VisualPrompt)
}

func TestAnalyzeDreamFencedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fenced := "```json\n{\"themes\":[],\"emotions\":[],\"symbols\":[],\"narrative\":\"n\",\"tags\":[\"t\"],\"visual_prompt\":\"v\"}\n```"
		_, _ = w.Write([]byte(completionBody(fenced)))
	}))
	defer srv.Close()

	out, err := testClient(srv.URL).AnalyzeDream(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, out.Tags)
}

func TestAnalyzeDreamMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody("not json at all")))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).AnalyzeDream(context.Background(), "x")
	assert.ErrorIs(t, err, ErrOracle)
}

func TestAnalyzeDreamEmptyAnalysis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(`{"themes":[],"tags":[],"narrative":""}`)))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).AnalyzeDream(context.Background(), "x")
	assert.ErrorIs(t, err, ErrOracle)
}

func TestRetriesOnceOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(completionBody(`{"tags":["sunset"]}`)))
	}))
	defer srv.Close()

	tags, err := testClient(srv.URL).TagMoment(context.Background(), "sunset at the pier", "photo")
	require.NoError(t, err)
	assert.Equal(t, []string{"sunset", "photo"}, tags)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).TagMoment(context.Background(), "caption", "photo")
	assert.ErrorIs(t, err, ErrOracle)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTagMomentEmptyCaptionSkipsOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty caption")
	}))
	defer srv.Close()

	tags, err := testClient(srv.URL).TagMoment(context.Background(), "   ", "video")
	require.NoError(t, err)
	assert.Equal(t, []string{"video", "moment"}, tags)
}

func TestRefineResonance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(`{"score":74,"explanation":"both reach for open sky"}`)))
	}))
	defer srv.Close()

	ref, err := testClient(srv.URL).RefineResonance(context.Background(), RefineInput{
		DreamTags:  []string{"flight"},
		MomentTags: []string{"flight", "ocean"},
	})
	require.NoError(t, err)
	assert.Equal(t, 74, ref.Score)
	assert.NotEmpty(t, ref.Explanation)
}

func TestRefineResonanceScoreOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(`{"score":140,"explanation":"x"}`)))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).RefineResonance(context.Background(), RefineInput{})
	assert.ErrorIs(t, err, ErrOracle)
}

func TestGenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"url":"https://img.example/1.png"}]}`))
	}))
	defer srv.Close()

	url, err := testClient(srv.URL).GenerateImage(context.Background(), "a winding road")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.png", url)
}

func TestEnhancePromptShortPassesThrough(t *testing.T) {
	out := enhancePrompt("a winding road")
	assert.Equal(t, "Dreamlike surreal artwork: a winding road. Ethereal, soft focus, mystical atmosphere.", out)
}

func TestEnhancePromptTruncatesOnRuneBoundary(t *testing.T) {
	// long enough that the cap lands mid-rune for a 3-byte character
	out := enhancePrompt(strings.Repeat("月", 2000))
	assert.LessOrEqual(t, len(out), maxImagePromptBytes)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasPrefix(out, "Dreamlike surreal artwork: "))
}

func TestModerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/moderations", r.URL.Path)
		_, _ = w.Write([]byte(`{"results":[{"flagged":true}]}`))
	}))
	defer srv.Close()

	flagged, err := testClient(srv.URL).Moderate(context.Background(), "bad text")
	require.NoError(t, err)
	assert.True(t, flagged)
}

func TestUnreachableServer(t *testing.T) {
	c := testClient("http://127.0.0.1:1")
	_, err := c.AnalyzeDream(context.Background(), "x")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrOracle))
}
