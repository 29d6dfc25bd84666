package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxPhotoSize = 10 << 20 // 10MB
	maxVideoSize = 50 << 20 // 50MB
)

var extByMIME = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/gif":       "gif",
	"image/webp":      "webp",
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
}

var photoMIMEs = map[string]bool{
	"image/jpeg": true, "image/png": true, "image/gif": true, "image/webp": true,
}

var videoMIMEs = map[string]bool{
	"video/mp4": true, "video/webm": true, "video/quicktime": true,
}

type UploadHandler struct {
	Dir     string
	BaseURL string
	Log     *zap.Logger
}

// MomentMedia accepts a multipart photo/video upload and returns its URL.
func (h *UploadHandler) MomentMedia(w http.ResponseWriter, r *http.Request) {
	// cap the whole request before any multipart parsing happens
	r.Body = http.MaxBytesReader(w, r.Body, maxVideoSize+1<<20)

	kind := r.FormValue("type")
	if kind != "photo" && kind != "video" {
		http.Error(w, "type must be 'photo' or 'video'", http.StatusBadRequest)
		return
	}

	maxSize := int64(maxPhotoSize)
	allowed := photoMIMEs
	if kind == "video" {
		maxSize = maxVideoSize
		allowed = videoMIMEs
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mime := header.Header.Get("Content-Type")
	if !allowed[mime] {
		http.Error(w, "unsupported file type", http.StatusBadRequest)
		return
	}
	if header.Size > maxSize {
		http.Error(w, fmt.Sprintf("file too large, max %dMB", maxSize>>20), http.StatusBadRequest)
		return
	}

	dir := filepath.Join(h.Dir, "moments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("moment_%s_%s.%s",
		time.Now().UTC().Format("20060102_150405"),
		uuid.NewString()[:8],
		extByMIME[mime])
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(path)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.Log.Info("media uploaded", zap.String("file", name), zap.Int64("bytes", header.Size))
	writeJSON(w, http.StatusOK, map[string]string{
		"url": h.BaseURL + "/moments/" + name,
	})
}
