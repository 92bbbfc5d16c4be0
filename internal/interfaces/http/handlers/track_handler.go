package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/interfaces/http/response"
	"agency-proxy.backend/internal/usecases"
)

const maxTrackRequestBytes = 64 << 10

// TrackService relays tracking queries upstream
type TrackService interface {
	Track(ctx context.Context, body []byte) (*usecases.TrackResponse, error)
}

type TrackHandler struct {
	tracker TrackService
}

func NewTrackHandler(tracker TrackService) *TrackHandler {
	return &TrackHandler{tracker: tracker}
}

// Track handles POST /api/track. The upstream status is relayed as is.
func (h *TrackHandler) Track(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxTrackRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.ErrorWithError(c, http.StatusRequestEntityTooLarge, domainerrors.CodeBadRequest, "request body too large")
			return
		}
		response.Error(c, domainerrors.BadRequest("unable to read request body"))
		return
	}

	res, err := h.tracker.Track(c.Request.Context(), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(res.Status, "application/json; charset=utf-8", res.Body)
}
