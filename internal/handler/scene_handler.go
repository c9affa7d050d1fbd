package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/cellwatch-backend-go/internal/catalog"
	"github.com/jengzang/cellwatch-backend-go/internal/service"
	"github.com/jengzang/cellwatch-backend-go/internal/view"
	"github.com/jengzang/cellwatch-backend-go/pkg/response"
)

// SceneHandler serves the render model and catalog metadata
type SceneHandler struct {
	scene      *view.MapScene
	controller *service.LayerController
	catalog    *catalog.Catalog
	viewer     *service.ViewerService
	playback   *service.PlaybackScheduler
}

// NewSceneHandler creates a new scene handler
func NewSceneHandler(scene *view.MapScene, controller *service.LayerController, cat *catalog.Catalog, viewer *service.ViewerService, playback *service.PlaybackScheduler) *SceneHandler {
	return &SceneHandler{
		scene:      scene,
		controller: controller,
		catalog:    cat,
		viewer:     viewer,
		playback:   playback,
	}
}

// GetScene handles GET /api/v1/scene
func (h *SceneHandler) GetScene(c *gin.Context) {
	response.Success(c, h.scene.Snapshot())
}

// StepInfo describes one catalog step for the scrub slider
type StepInfo struct {
	Index        int    `json:"index"`
	FileName     string `json:"fileName"`
	TimestampKey string `json:"timestampKey,omitempty"`
	Label        string `json:"label"`
	FeatureCount int    `json:"featureCount"`
}

// GetSteps handles GET /api/v1/steps
func (h *SceneHandler) GetSteps(c *gin.Context) {
	steps := h.controller.Steps()
	infos := make([]StepInfo, len(steps))
	for i, step := range steps {
		key, _ := catalog.TimestampKey(step.FileName)
		count := 0
		if step.Boundary != nil {
			count = len(step.Boundary.Features)
		}
		infos[i] = StepInfo{
			Index:        i,
			FileName:     step.FileName,
			TimestampKey: key,
			Label:        catalog.DisplayTimestamp(step),
			FeatureCount: count,
		}
	}
	response.Success(c, infos)
}

// GetStatus handles GET /api/v1/status
func (h *SceneHandler) GetStatus(c *gin.Context) {
	response.Success(c, gin.H{
		"catalog":      h.catalog.Status(),
		"ready":        h.viewer.Ready(),
		"currentIndex": h.controller.CurrentIndex(),
		"playing":      h.playback.Playing(),
		"speedSeconds": h.playback.Speed(),
	})
}
