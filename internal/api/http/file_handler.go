package http

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/storage"
)

// FileHandler serves objects written by the local blob backend.
type FileHandler struct {
	local *storage.LocalStorage
}

func NewFileHandler(local *storage.LocalStorage) *FileHandler {
	return &FileHandler{local: local}
}

// Download handles GET /files?key=...
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing key parameter", http.StatusBadRequest)
		return
	}

	file, err := h.local.Open(key)
	switch {
	case errors.Is(err, storage.ErrInvalidKey):
		http.Error(w, "Invalid key", http.StatusBadRequest)
		return
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "File not found", http.StatusNotFound)
		return
	case err != nil:
		logger.Error("Failed to open stored file", "key", key, "error", err)
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	contentType := "application/octet-stream"
	switch filepath.Ext(key) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if _, err := io.Copy(w, file); err != nil {
		logger.Debug("File download interrupted", "key", key, "error", err)
	}
}
