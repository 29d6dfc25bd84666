package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dreamcapture/backend/internal/auth"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxFailedLogins = 5
	lockoutWindow   = 15 * time.Minute
)

type AuthHandler struct {
	DB  *gorm.DB
	JWT *auth.JWT
	Log *zap.Logger
}

type registerReq struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decodeValid(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	u := auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := h.DB.Create(&u).Error; err != nil {
		http.Error(w, "username or email already used", http.StatusConflict)
		return
	}

	token, err := h.JWT.Sign(u.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.Log.Info("user registered", zap.Uint64("user_id", u.ID))
	writeJSON(w, http.StatusCreated, map[string]any{"token": token})
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeValid(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	var u auth.User
	if err := h.DB.Where("email = ?", req.Email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	if u.LockedUntil != nil && u.LockedUntil.After(now) {
		http.Error(w, "account locked, try again later", http.StatusForbidden)
		return
	}

	if !auth.ComparePassword(u.PasswordHash, req.Password) {
		h.recordFailedLogin(&u, now)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if !u.IsActive {
		http.Error(w, "inactive user", http.StatusForbidden)
		return
	}

	// clear lockout bookkeeping on success
	if u.FailedLoginAttempts > 0 || u.LockedUntil != nil {
		_ = h.DB.Model(&auth.User{}).Where("id = ?", u.ID).
			Updates(map[string]any{"failed_login_attempts": 0, "locked_until": nil}).Error
	}

	token, err := h.JWT.Sign(u.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (h *AuthHandler) recordFailedLogin(u *auth.User, now time.Time) {
	// atomic increment so concurrent failures are all counted
	if err := h.DB.Model(&auth.User{}).Where("id = ?", u.ID).
		UpdateColumn("failed_login_attempts", gorm.Expr("failed_login_attempts + ?", 1)).Error; err != nil {
		h.Log.Warn("failed-login bookkeeping error", zap.Error(err))
		return
	}
	if u.FailedLoginAttempts+1 >= maxFailedLogins {
		until := now.Add(lockoutWindow)
		_ = h.DB.Model(&auth.User{}).Where("id = ?", u.ID).
			Update("locked_until", until).Error
		h.Log.Warn("account locked after repeated failures", zap.Uint64("user_id", u.ID))
	}
}
