package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/http/response"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
	"github.com/yungbote/fleet-backend/internal/services"
)

const loadsPath = "/loads"

type LoadHandler struct {
	log   *logger.Logger
	loads services.LoadService
}

func NewLoadHandler(log *logger.Logger, loads services.LoadService) *LoadHandler {
	return &LoadHandler{log: log.With("handler", "LoadHandler"), loads: loads}
}

type createLoadRequest struct {
	Item   *string  `json:"item"`
	Weight *float64 `json:"weight"`
	Volume *float64 `json:"volume"`
}

type loadListResponse struct {
	TotalLoadCount int64         `json:"total_load_count"`
	Loads          []*types.Load `json:"loads"`
	Next           string        `json:"next,omitempty"`
}

func newLoadListResponse(c *gin.Context, path string, page *services.LoadPage) loadListResponse {
	return loadListResponse{
		TotalLoadCount: page.Total,
		Loads:          page.Loads,
		Next:           nextLink(c, path, page.NextCursor),
	}
}

// GET /loads
func (h *LoadHandler) ListLoads(c *gin.Context) {
	if !requireAcceptJSON(c) {
		return
	}
	page, err := h.loads.List(c.Request.Context(), c.Query("cursor"))
	if err != nil {
		respondServiceError(c, h.log, "list loads", err)
		return
	}
	response.RespondOK(c, newLoadListResponse(c, loadsPath, page))
}

// GET /loads/:id
func (h *LoadHandler) GetLoad(c *gin.Context) {
	l, ok := h.existingLoad(c)
	if !ok || !requireAcceptJSON(c) {
		return
	}
	response.RespondOK(c, l)
}

// POST /loads
func (h *LoadHandler) CreateLoad(c *gin.Context) {
	if !sendsJSON(c) {
		response.RespondError(c, http.StatusUnsupportedMediaType, "unsupported_media_type", errUnsupportedMedia)
		return
	}
	if !requireAcceptJSON(c) {
		return
	}
	var req createLoadRequest
	if err := decodeBody(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	l, err := h.loads.Create(c.Request.Context(), services.CreateLoadInput{
		Item:          req.Item,
		Weight:        req.Weight,
		Volume:        req.Volume,
		CollectionURL: absoluteURL(c, loadsPath),
	})
	if err != nil {
		respondServiceError(c, h.log, "create load", err)
		return
	}
	response.RespondCreated(c, l)
}

// PATCH /loads/:id and PUT /loads/:id. Both merge the supplied fields.
func (h *LoadHandler) UpdateLoad(c *gin.Context) {
	l, ok := h.existingLoad(c)
	if !ok || !requireAcceptJSON(c) {
		return
	}
	nonEmpty, err := hasBody(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMalformedBody)
		return
	}
	if nonEmpty && !sendsJSON(c) {
		response.RespondError(c, http.StatusUnsupportedMediaType, "unsupported_media_type", errUnsupportedMedia)
		return
	}
	var p services.LoadPatch
	if err := decodeBody(c, &p); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	updated, err := h.loads.Update(c.Request.Context(), l.ID, p)
	if err != nil {
		respondServiceError(c, h.log, "update load", err)
		return
	}
	response.RespondCreated(c, updated)
}

// DELETE /loads/:id
func (h *LoadHandler) DeleteLoad(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "not_found", services.ErrLoadNotFound)
		return
	}
	if err := h.loads.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.log, "delete load", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CollectionMethodNotAllowed answers DELETE, PUT and PATCH on /loads.
func (h *LoadHandler) CollectionMethodNotAllowed(c *gin.Context) {
	c.Header("Allow", "GET, POST")
	response.RespondError(c, http.StatusMethodNotAllowed, "method_not_allowed",
		errMethodNotAllowed(c.Request.Method, loadsPath))
}

// existingLoad resolves :id, writing 404 when it does not name a load.
func (h *LoadHandler) existingLoad(c *gin.Context) (*types.Load, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		response.RespondError(c, http.StatusNotFound, "not_found", services.ErrLoadNotFound)
		return nil, false
	}
	l, err := h.loads.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, "get load", err)
		return nil, false
	}
	if l == nil {
		response.RespondError(c, http.StatusNotFound, "not_found", services.ErrLoadNotFound)
		return nil, false
	}
	return l, true
}
