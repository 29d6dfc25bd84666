package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreamcapture/backend/internal/auth"
	"github.com/dreamcapture/backend/internal/content"
	"github.com/dreamcapture/backend/internal/jobs"
	"github.com/dreamcapture/backend/internal/oracle"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type DreamHandler struct {
	Svc    *content.Service
	Oracle oracle.Client
	Jobs   *jobs.Repo
	Log    *zap.Logger

	// cap on how long a submission may wait for the oracle
	OracleTimeout time.Duration
}

type createDreamReq struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description string  `json:"description" validate:"required,min=10,max=5000"`
	AudioURL    *string `json:"audio_url" validate:"omitempty,max=500"`
	IsPublic    *bool   `json:"is_public"`
	TTLDays     int     `json:"ttl_days" validate:"omitempty,oneof=0 1 7 30"`
}

type dreamDTO struct {
	ID                uint64          `json:"id"`
	UserID            uint64          `json:"user_id"`
	Title             *string         `json:"title"`
	Description       string          `json:"description"`
	AudioURL          *string         `json:"audio_url"`
	Analysis          json.RawMessage `json:"analysis"`
	Tags              []string        `json:"tags"`
	GeneratedImageURL *string         `json:"generated_image_url"`
	TTLDays           int             `json:"ttl_days"`
	IsPublic          bool            `json:"is_public"`
	IsVisible         bool            `json:"is_visible"`
	ViewCount         int64           `json:"view_count"`
	CreatedAt         time.Time       `json:"created_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
}

func toDreamDTO(d *content.Dream) dreamDTO {
	return dreamDTO{
		ID:                d.ID,
		UserID:            d.UserID,
		Title:             d.Title,
		Description:       d.Description,
		AudioURL:          d.AudioURL,
		Analysis:          d.Analysis,
		Tags:              []string(d.Tags),
		GeneratedImageURL: d.GeneratedImageURL,
		TTLDays:           d.TTLDays,
		IsPublic:          d.IsPublic,
		IsVisible:         d.IsVisible,
		ViewCount:         d.ViewCount,
		CreatedAt:         d.CreatedAt,
		ExpiresAt:         d.ExpiresAt,
	}
}

func (h *DreamHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createDreamReq
	if !decodeValid(w, r, &req) {
		return
	}

	text := req.Description
	if req.Title != nil {
		text = *req.Title + " " + text
	}
	if h.moderationRejects(r.Context(), text) {
		http.Error(w, "content violates community guidelines", http.StatusBadRequest)
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	d, err := h.Svc.CreateDream(r.Context(), uid, content.CreateDreamInput{
		Title:       req.Title,
		Description: req.Description,
		AudioURL:    req.AudioURL,
		IsPublic:    isPublic,
		TTLDays:     req.TTLDays,
	})
	if err != nil {
		if errors.Is(err, content.ErrRateLimited) {
			http.Error(w, "daily dream limit reached", http.StatusTooManyRequests)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	// Best-effort analysis within a bounded window. The dream is already
	// persisted; an oracle failure just means empty tags and no analysis.
	h.enrich(r.Context(), d)

	if err := h.Jobs.EnqueueDream(r.Context(), jobs.TypeDreamResonanceScan, uid, d.ID); err != nil {
		h.Log.Warn("enqueue resonance scan failed", zap.Uint64("dream_id", d.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, toDreamDTO(d))
}

func (h *DreamHandler) enrich(ctx context.Context, d *content.Dream) {
	octx, cancel := context.WithTimeout(ctx, h.OracleTimeout)
	defer cancel()

	analysis, err := h.Oracle.AnalyzeDream(octx, d.Description)
	if err != nil {
		h.Log.Warn("dream analysis unavailable", zap.Uint64("dream_id", d.ID), zap.Error(err))
		return
	}

	raw, err := json.Marshal(analysis)
	if err != nil {
		return
	}
	if err := h.Svc.SetDreamAnalysis(ctx, d.ID, analysis.Tags, raw); err != nil {
		h.Log.Error("persist dream analysis failed", zap.Uint64("dream_id", d.ID), zap.Error(err))
		return
	}
	d.Analysis = raw
	d.Tags = analysis.Tags

	if err := h.Jobs.EnqueueDream(ctx, jobs.TypeDreamIllustrate, d.UserID, d.ID); err != nil {
		h.Log.Warn("enqueue illustration failed", zap.Uint64("dream_id", d.ID), zap.Error(err))
	}
}

// moderationRejects fails open: an unreachable moderation endpoint never
// blocks submission.
func (h *DreamHandler) moderationRejects(ctx context.Context, text string) bool {
	octx, cancel := context.WithTimeout(ctx, h.OracleTimeout)
	defer cancel()

	flagged, err := h.Oracle.Moderate(octx, text)
	if err != nil {
		h.Log.Warn("moderation unavailable", zap.Error(err))
		return false
	}
	return flagged
}

func (h *DreamHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	dreams, err := h.Svc.ListPublicDreams(r.Context(), skip, limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]dreamDTO, 0, len(dreams))
	for i := range dreams {
		out = append(out, toDreamDTO(&dreams[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DreamHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	skip, limit := pagination(r)
	dreams, err := h.Svc.ListUserDreams(r.Context(), uid, skip, limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]dreamDTO, 0, len(dreams))
	for i := range dreams {
		out = append(out, toDreamDTO(&dreams[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DreamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	d, err := h.Svc.GetDream(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, content.ErrNotFound):
			http.Error(w, "dream not found", http.StatusNotFound)
		case errors.Is(err, content.ErrExpired):
			http.Error(w, "dream expired", http.StatusGone)
		case errors.Is(err, content.ErrPrivate):
			http.Error(w, "this dream is private", http.StatusForbidden)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, toDreamDTO(d))
}

func (h *DreamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Svc.DeleteDream(r.Context(), uid, id); err != nil {
		switch {
		case errors.Is(err, content.ErrNotFound):
			http.Error(w, "dream not found", http.StatusNotFound)
		case errors.Is(err, content.ErrForbidden):
			http.Error(w, "access denied", http.StatusForbidden)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func pagination(r *http.Request) (skip, limit int) {
	skip, limit = 0, 20
	if v := strings.TrimSpace(r.URL.Query().Get("skip")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	return skip, limit
}
