package storage

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bmbroch/ceylonstay/internal/transport"
)

// Handler serves stored photo bytes on GET /media/*.
type Handler struct {
	fs  *GridFS
	log *slog.Logger
}

func NewHandler(fs *GridFS, log *slog.Logger) *Handler {
	return &Handler{fs: fs, log: log}
}

func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		transport.WriteError(w, http.StatusNotFound, "not found", nil)
		return
	}

	stream, contentType, err := h.fs.Open(path)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			transport.WriteError(w, http.StatusNotFound, "not found", nil)
			return
		}
		h.log.Error("media open failed", slog.String("path", path), slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "storage error", nil)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public,max-age=31536000")
	if _, err := io.Copy(w, stream); err != nil {
		h.log.Warn("media stream interrupted", slog.String("path", path), slog.String("error", err.Error()))
	}
}
