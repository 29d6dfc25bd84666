package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dreamcapture/backend/internal/auth"
	"github.com/dreamcapture/backend/internal/resonance"

	"gorm.io/gorm"
)

type ResonanceHandler struct {
	Svc *resonance.Service
	DB  *gorm.DB
}

type resonanceDTO struct {
	ID          uint64    `json:"id"`
	DreamID     uint64    `json:"dream_id"`
	MomentID    uint64    `json:"moment_id"`
	Score       int       `json:"score"`
	Explanation string    `json:"explanation"`
	IsSaved     bool      `json:"is_saved"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *ResonanceHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	skip, limit := pagination(r)
	rows, err := h.Svc.ListForUser(r.Context(), uid, skip, limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]resonanceDTO, 0, len(rows))
	for _, res := range rows {
		out = append(out, resonanceDTO{
			ID:          res.ID,
			DreamID:     res.DreamID,
			MomentID:    res.MomentID,
			Score:       res.Score,
			Explanation: res.Explanation,
			IsSaved:     res.IsSaved,
			CreatedAt:   res.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Save persists a resonance past its content's expiry. Premium-only.
func (h *ResonanceHandler) Save(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var u auth.User
	if err := h.DB.Where("id = ?", uid).First(&u).Error; err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !u.IsPremium {
		http.Error(w, "saving resonances requires premium", http.StatusForbidden)
		return
	}

	if err := h.Svc.Save(r.Context(), uid, id); err != nil {
		if errors.Is(err, resonance.ErrNotFound) {
			http.Error(w, "resonance not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
