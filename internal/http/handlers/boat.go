package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/http/response"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
	"github.com/yungbote/fleet-backend/internal/services"
)

const boatsPath = "/boats"

type BoatHandler struct {
	log   *logger.Logger
	boats services.BoatService
	loads services.LoadService
}

func NewBoatHandler(log *logger.Logger, boats services.BoatService, loads services.LoadService) *BoatHandler {
	return &BoatHandler{log: log.With("handler", "BoatHandler"), boats: boats, loads: loads}
}

type createBoatRequest struct {
	Name   *string  `json:"name"`
	Type   *string  `json:"type"`
	Length *float64 `json:"length"`
}

// POST /boats
func (h *BoatHandler) CreateBoat(c *gin.Context) {
	if !sendsJSON(c) {
		response.RespondError(c, http.StatusUnsupportedMediaType, "unsupported_media_type", errUnsupportedMedia)
		return
	}
	if !requireAcceptJSON(c) {
		return
	}
	var req createBoatRequest
	if err := decodeBody(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	b, err := h.boats.Create(c.Request.Context(), services.CreateBoatInput{
		Name:          req.Name,
		Type:          req.Type,
		Length:        req.Length,
		CollectionURL: absoluteURL(c, boatsPath),
	})
	if err != nil {
		respondServiceError(c, h.log, "create boat", err)
		return
	}
	response.RespondCreated(c, b)
}

// GET /boats/:id
func (h *BoatHandler) GetBoat(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "not_found", services.ErrBoatNotFound)
		return
	}
	b, err := h.boats.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, "get boat", err)
		return
	}
	if b == nil {
		response.RespondError(c, http.StatusNotFound, "not_found", services.ErrBoatNotFound)
		return
	}
	if !requireAcceptJSON(c) {
		return
	}
	response.RespondOK(c, b)
}

// GET /boats/:id/loads lists the loads whose carrier is the boat, read from
// the load records rather than the boat's mirror.
func (h *BoatHandler) ListBoatLoads(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "not_found", services.ErrBoatNotFound)
		return
	}
	if !requireAcceptJSON(c) {
		return
	}
	page, err := h.loads.ListByCarrier(c.Request.Context(), id, c.Query("cursor"))
	if err != nil {
		respondServiceError(c, h.log, "list boat loads", err)
		return
	}
	path := boatsPath + "/" + strconv.FormatInt(id, 10) + loadsPath
	response.RespondOK(c, newLoadListResponse(c, path, page))
}

// PUT /boats/:id/loads/:load_id
func (h *BoatHandler) AssignLoad(c *gin.Context) {
	h.changeCarrier(c, "assign load", h.loads.Assign)
}

// DELETE /boats/:id/loads/:load_id
func (h *BoatHandler) UnassignLoad(c *gin.Context) {
	h.changeCarrier(c, "unassign load", h.loads.Unassign)
}

func (h *BoatHandler) changeCarrier(c *gin.Context, op string, fn func(ctx context.Context, boatID, loadID int64) error) {
	boatID, ok := pathID(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "not_found", services.ErrBoatNotFound)
		return
	}
	loadID, ok := pathID(c, "load_id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "not_found", services.ErrLoadNotFound)
		return
	}
	if err := fn(c.Request.Context(), boatID, loadID); err != nil {
		respondServiceError(c, h.log, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}
