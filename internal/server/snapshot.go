package server

import (
	"image/png"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/ayusman/beltcount/internal/live"
)

// maxSnapshotWidth bounds the width query parameter.
const maxSnapshotWidth = 4096

// SnapshotHandler serves the latest annotated frame as a PNG, optionally
// resized to ?width=N keeping the aspect ratio.
type SnapshotHandler struct {
	hub *live.Hub
}

// NewSnapshotHandler creates a new SnapshotHandler reading from hub.
func NewSnapshotHandler(hub *live.Hub) *SnapshotHandler {
	return &SnapshotHandler{hub: hub}
}

func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	width := 0
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxSnapshotWidth {
			http.Error(w, "Invalid width", http.StatusBadRequest)
			return
		}
		width = n
	}

	frame, ok := h.hub.Frame()
	defer frame.Close()
	if !ok {
		http.Error(w, "No frame available", http.StatusServiceUnavailable)
		return
	}

	img, err := frame.ToImage()
	if err != nil {
		http.Error(w, "Failed to convert frame", http.StatusInternalServerError)
		return
	}

	if width > 0 && width != img.Bounds().Dx() {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	png.Encode(w, img)
}
