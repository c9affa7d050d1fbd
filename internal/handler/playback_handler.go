package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/cellwatch-backend-go/internal/service"
	"github.com/jengzang/cellwatch-backend-go/pkg/response"
)

// PlaybackHandler handles play/pause, speed and step navigation
type PlaybackHandler struct {
	controller *service.LayerController
	playback   *service.PlaybackScheduler
	viewer     *service.ViewerService
}

// NewPlaybackHandler creates a new playback handler
func NewPlaybackHandler(controller *service.LayerController, playback *service.PlaybackScheduler, viewer *service.ViewerService) *PlaybackHandler {
	return &PlaybackHandler{
		controller: controller,
		playback:   playback,
		viewer:     viewer,
	}
}

// Toggle handles POST /api/v1/playback/toggle
func (h *PlaybackHandler) Toggle(c *gin.Context) {
	playing := h.playback.TogglePlayPause()
	response.Success(c, gin.H{"playing": playing})
}

// SpeedRequest is the body of POST /api/v1/playback/speed
type SpeedRequest struct {
	Seconds float64 `json:"seconds" binding:"required"`
}

// SetSpeed handles POST /api/v1/playback/speed
func (h *PlaybackHandler) SetSpeed(c *gin.Context) {
	var req SpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid speed payload")
		return
	}
	if err := h.playback.SetSpeed(req.Seconds); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"speedSeconds": h.playback.Speed()})
}

// SeekRequest is the body of POST /api/v1/view/step
type SeekRequest struct {
	Index *int `json:"index" binding:"required"`
}

// Seek handles POST /api/v1/view/step
func (h *PlaybackHandler) Seek(c *gin.Context) {
	var req SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid step payload")
		return
	}
	if *req.Index < 0 || *req.Index >= h.controller.StepCount() {
		response.BadRequest(c, "Step index out of range")
		return
	}
	h.controller.ShowTimeStepAt(c.Request.Context(), *req.Index)
	h.viewer.Persist()
	response.Success(c, gin.H{"currentIndex": h.controller.CurrentIndex()})
}

// Next handles POST /api/v1/view/next
func (h *PlaybackHandler) Next(c *gin.Context) {
	h.step(c, 1)
}

// Prev handles POST /api/v1/view/prev
func (h *PlaybackHandler) Prev(c *gin.Context) {
	h.step(c, -1)
}

func (h *PlaybackHandler) step(c *gin.Context, delta int) {
	n := h.controller.StepCount()
	if n == 0 {
		response.ServiceUnavailable(c, "No steps loaded")
		return
	}
	next := (h.controller.CurrentIndex() + delta + n) % n
	h.controller.ShowTimeStepAt(c.Request.Context(), next)
	h.viewer.Persist()
	response.Success(c, gin.H{"currentIndex": h.controller.CurrentIndex()})
}
