package handler

import (
	"net/http"

	"github.com/dreamcapture/backend/internal/auth"

	"gorm.io/gorm"
)

type MeHandler struct {
	DB *gorm.DB
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var u auth.User
	if err := h.DB.Where("id = ?", uid).First(&u).Error; err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"is_premium": u.IsPremium,
		"created_at": u.CreatedAt,
	})
}
