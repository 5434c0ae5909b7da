package handlers

import (
	"net/http"

	"bucket-list-backend/internal/middleware"
	"bucket-list-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UploadHandler hands out pre-signed upload URLs
type UploadHandler struct {
	mediaService *services.MediaService
}

// NewUploadHandler creates a new upload handler; a nil service disables uploads
func NewUploadHandler(mediaService *services.MediaService) *UploadHandler {
	return &UploadHandler{mediaService: mediaService}
}

// CreateUpload handles POST /api/v1/uploads
func (h *UploadHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	if h.mediaService == nil {
		respondError(w, "uploads are not configured", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.UploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.mediaService.GetPreSignedURL(ctx, userID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to presign upload")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("kind", req.Kind).
		Str("key", resp.Key).
		Msg("Generated upload URL")

	respondJSON(w, http.StatusOK, resp)
}
