package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/cellwatch-backend-go/internal/config"
	"github.com/jengzang/cellwatch-backend-go/internal/models"
	"github.com/jengzang/cellwatch-backend-go/internal/service"
	"github.com/jengzang/cellwatch-backend-go/pkg/response"
)

// SettingsHandler handles threshold, label toggles, trajectory visibility,
// viewport reports and the reset action
type SettingsHandler struct {
	controller *service.LayerController
	viewer     *service.ViewerService
	cfg        *config.Config
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(controller *service.LayerController, viewer *service.ViewerService, cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{
		controller: controller,
		viewer:     viewer,
		cfg:        cfg,
	}
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	response.Success(c, gin.H{
		"threshold":         h.controller.Threshold(),
		"allowedThresholds": h.cfg.Thresholds,
		"displayOptions":    h.controller.DisplayOptions(),
		"trajectoryVisible": h.controller.TrajectoryVisible(),
		"viewport":          h.viewer.Viewport(),
		"speedMin":          h.cfg.SpeedMin,
		"speedMax":          h.cfg.SpeedMax,
	})
}

// ThresholdRequest is the body of POST /api/v1/settings/threshold
type ThresholdRequest struct {
	Value string `json:"value" binding:"required"`
}

// SetThreshold handles POST /api/v1/settings/threshold
func (h *SettingsHandler) SetThreshold(c *gin.Context) {
	var req ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid threshold payload")
		return
	}
	if !h.cfg.AllowsThreshold(req.Value) {
		response.BadRequest(c, "Threshold value not in allowed set")
		return
	}
	h.controller.SetThreshold(c.Request.Context(), req.Value)
	h.viewer.Persist()
	response.Success(c, gin.H{"threshold": h.controller.Threshold()})
}

// DisplayRequest is the body of POST /api/v1/settings/display
type DisplayRequest struct {
	Attribute string `json:"attribute" binding:"required"`
	Enabled   *bool  `json:"enabled" binding:"required"`
}

// SetDisplayOption handles POST /api/v1/settings/display
func (h *SettingsHandler) SetDisplayOption(c *gin.Context) {
	var req DisplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid display payload")
		return
	}
	h.controller.SetDisplayOption(req.Attribute, *req.Enabled)
	h.viewer.Persist()
	response.Success(c, h.controller.DisplayOptions())
}

// TrajectoryRequest is the body of POST /api/v1/settings/trajectory
type TrajectoryRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// SetTrajectory handles POST /api/v1/settings/trajectory
func (h *SettingsHandler) SetTrajectory(c *gin.Context) {
	var req TrajectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid trajectory payload")
		return
	}
	err := h.controller.SetTrajectoryVisible(c.Request.Context(), *req.Visible)
	h.viewer.Persist()
	if err != nil {
		// The toggle is already disabled again; report why
		response.InternalError(c, "Trajectory load failed; overlay disabled")
		return
	}
	response.Success(c, gin.H{"trajectoryVisible": h.controller.TrajectoryVisible()})
}

// SetViewport handles POST /api/v1/settings/viewport
func (h *SettingsHandler) SetViewport(c *gin.Context) {
	var vp models.Viewport
	if err := c.ShouldBindJSON(&vp); err != nil {
		response.BadRequest(c, "Invalid viewport payload")
		return
	}
	h.viewer.SetViewport(vp)
	response.Success(c, vp)
}

// Reset handles POST /api/v1/settings/reset
func (h *SettingsHandler) Reset(c *gin.Context) {
	if err := h.viewer.Reset(c.Request.Context()); err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"reset": true})
}
