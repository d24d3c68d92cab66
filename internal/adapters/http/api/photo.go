// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	service "github.com/easyshift/presence/internal/app"
	"github.com/easyshift/presence/internal/domain/recognize"
)

// maxPhotoBytes caps uploaded image size.
const maxPhotoBytes = 10 << 20

// PhotoHandler handles the photo-upload attendance path.
type PhotoHandler struct {
	ctrl Controller
}

// NewPhotoHandler creates a new photo handler.
func NewPhotoHandler(ctrl Controller) *PhotoHandler {
	return &PhotoHandler{ctrl: ctrl}
}

// HandleUpload handles POST /attendance/photo requests. The image arrives
// as multipart form data under the "image" field; a decodable code in it
// produces one attendance event, a miss fails the attempt with 422.
func (h *PhotoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	f, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_image", ErrBadRequest)
		return
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "undecodable_image", err)
		return
	}

	ev, err := h.ctrl.SubmitImage(r.Context(), img)
	if err != nil {
		switch {
		case errors.Is(err, recognize.ErrDecodeMiss):
			writeError(w, http.StatusUnprocessableEntity, "no_code_found", err)
		case errors.Is(err, service.ErrNoIdentity):
			writeError(w, http.StatusUnauthorized, "no_identity", err)
		case errors.Is(err, service.ErrNotStarted):
			writeError(w, http.StatusServiceUnavailable, "unavailable", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, attendanceResponse{
		SessionID: ev.SessionID,
		Payload:   ev.Payload,
		Method:    string(ev.Method),
	})
}
