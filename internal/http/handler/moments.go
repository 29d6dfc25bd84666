package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dreamcapture/backend/internal/auth"
	"github.com/dreamcapture/backend/internal/content"
	"github.com/dreamcapture/backend/internal/jobs"
	"github.com/dreamcapture/backend/internal/oracle"
	"github.com/dreamcapture/backend/internal/stream"

	"go.uber.org/zap"
)

type MomentHandler struct {
	Svc    *content.Service
	Oracle oracle.Client
	Jobs   *jobs.Repo
	Hub    *stream.Hub
	Log    *zap.Logger

	OracleTimeout time.Duration
}

type createMomentReq struct {
	Caption   *string         `json:"caption" validate:"omitempty,max=500"`
	MediaType string          `json:"media_type" validate:"required,oneof=photo video"`
	MediaURL  string          `json:"media_url" validate:"required,max=500"`
	Location  json.RawMessage `json:"location"`
}

type momentDTO struct {
	ID        uint64          `json:"id"`
	UserID    uint64          `json:"user_id"`
	Caption   *string         `json:"caption"`
	MediaType string          `json:"media_type"`
	MediaURL  string          `json:"media_url"`
	Location  json.RawMessage `json:"location"`
	Tags      []string        `json:"tags"`
	IsVisible bool            `json:"is_visible"`
	ViewCount int64           `json:"view_count"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func toMomentDTO(m *content.Moment) momentDTO {
	return momentDTO{
		ID:        m.ID,
		UserID:    m.UserID,
		Caption:   m.Caption,
		MediaType: m.MediaType,
		MediaURL:  m.MediaURL,
		Location:  m.Location,
		Tags:      []string(m.Tags),
		IsVisible: m.IsVisible,
		ViewCount: m.ViewCount,
		CreatedAt: m.CreatedAt,
		ExpiresAt: m.ExpiresAt,
	}
}

func (h *MomentHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createMomentReq
	if !decodeValid(w, r, &req) {
		return
	}

	if req.Caption != nil && h.moderationRejects(r.Context(), *req.Caption) {
		http.Error(w, "caption violates community guidelines", http.StatusBadRequest)
		return
	}

	m, err := h.Svc.CreateMoment(r.Context(), uid, content.CreateMomentInput{
		Caption:   req.Caption,
		MediaType: req.MediaType,
		MediaURL:  req.MediaURL,
		Location:  req.Location,
	})
	if err != nil {
		if errors.Is(err, content.ErrRateLimited) {
			http.Error(w, "hourly moment limit reached", http.StatusTooManyRequests)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	// the moment is live; tell connected viewers now
	h.Hub.Publish(stream.Event{Type: "new_moment", MomentID: m.ID})

	h.tag(r.Context(), m)

	if err := h.Jobs.EnqueueMomentScan(r.Context(), uid, m.ID); err != nil {
		h.Log.Warn("enqueue resonance scan failed", zap.Uint64("moment_id", m.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, toMomentDTO(m))
}

// tag runs the bounded tag-extraction call. Failure degrades to an empty
// tag set; submission has already succeeded.
func (h *MomentHandler) tag(ctx context.Context, m *content.Moment) {
	octx, cancel := context.WithTimeout(ctx, h.OracleTimeout)
	defer cancel()

	caption := ""
	if m.Caption != nil {
		caption = *m.Caption
	}
	tags, err := h.Oracle.TagMoment(octx, caption, m.MediaType)
	if err != nil {
		h.Log.Warn("moment tagging unavailable", zap.Uint64("moment_id", m.ID), zap.Error(err))
		return
	}

	if err := h.Svc.SetMomentTags(ctx, m.ID, tags); err != nil {
		h.Log.Error("persist moment tags failed", zap.Uint64("moment_id", m.ID), zap.Error(err))
		return
	}
	m.Tags = tags
}

func (h *MomentHandler) moderationRejects(ctx context.Context, text string) bool {
	octx, cancel := context.WithTimeout(ctx, h.OracleTimeout)
	defer cancel()

	flagged, err := h.Oracle.Moderate(octx, text)
	if err != nil {
		h.Log.Warn("moderation unavailable", zap.Error(err))
		return false
	}
	return flagged
}

func (h *MomentHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	moments, err := h.Svc.ListMoments(r.Context(), skip, limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]momentDTO, 0, len(moments))
	for i := range moments {
		out = append(out, toMomentDTO(&moments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MomentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	m, err := h.Svc.GetMoment(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, content.ErrNotFound):
			http.Error(w, "moment not found", http.StatusNotFound)
		case errors.Is(err, content.ErrExpired):
			http.Error(w, "moment expired", http.StatusGone)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, toMomentDTO(m))
}
