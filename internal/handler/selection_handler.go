package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/cellwatch-backend-go/internal/service"
	"github.com/jengzang/cellwatch-backend-go/pkg/response"
)

// SelectionHandler routes map clicks into the click-to-select protocol
type SelectionHandler struct {
	controller *service.LayerController
	viewer     *service.ViewerService
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(controller *service.LayerController, viewer *service.ViewerService) *SelectionHandler {
	return &SelectionHandler{
		controller: controller,
		viewer:     viewer,
	}
}

// ClickRequest is the body of POST /api/v1/select/feature
type ClickRequest struct {
	UID string `json:"uid" binding:"required"`
}

// ClickFeature handles POST /api/v1/select/feature
func (h *SelectionHandler) ClickFeature(c *gin.Context) {
	var req ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid click payload")
		return
	}
	if err := h.controller.ClickFeature(req.UID); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	h.viewer.Persist()

	sel := h.controller.Selection()
	response.Success(c, gin.H{
		"selectedUid": sel.UID,
		"rendered":    sel.Rendered(),
	})
}

// ClickBackground handles POST /api/v1/select/clear
func (h *SelectionHandler) ClickBackground(c *gin.Context) {
	h.controller.ClickBackground()
	h.viewer.Persist()
	response.Success(c, gin.H{"selectedUid": ""})
}
