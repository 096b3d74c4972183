package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/http/response"
	"github.com/yungbote/fleet-backend/internal/platform/ctxutil"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
	"github.com/yungbote/fleet-backend/internal/services"
)

// respondServiceError maps service errors to statuses. Anything unrecognised
// is logged and reported as a generic 500.
func respondServiceError(c *gin.Context, log *logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, services.ErrLoadNotFound), errors.Is(err, services.ErrBoatNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrLoadAlreadyAssigned), errors.Is(err, services.ErrLoadNotOnBoat):
		response.RespondError(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, services.ErrInvalidCursor):
		response.RespondError(c, http.StatusBadRequest, "invalid_cursor", services.ErrInvalidCursor)
	default:
		log.Error("request failed", "op", op, "request_id", ctxutil.RequestID(c.Request.Context()), "error", err)
		_ = c.Error(err)
		response.RespondError(c, http.StatusInternalServerError, "internal", errInternal)
	}
}
