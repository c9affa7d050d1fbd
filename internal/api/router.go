package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/cellwatch-backend-go/internal/catalog"
	"github.com/jengzang/cellwatch-backend-go/internal/config"
	"github.com/jengzang/cellwatch-backend-go/internal/handler"
	"github.com/jengzang/cellwatch-backend-go/internal/middleware"
	"github.com/jengzang/cellwatch-backend-go/internal/service"
	"github.com/jengzang/cellwatch-backend-go/internal/view"
	"github.com/jengzang/cellwatch-backend-go/pkg/response"
)

// Deps bundles everything the router serves
type Deps struct {
	Config     *config.Config
	Scene      *view.MapScene
	Catalog    *catalog.Catalog
	Controller *service.LayerController
	Playback   *service.PlaybackScheduler
	Viewer     *service.ViewerService
}

// SetupRouter sets up all routes
func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "cellwatch backend is running",
		})
	})

	authHandler := handler.NewAuthHandler(d.Config)
	sceneHandler := handler.NewSceneHandler(d.Scene, d.Controller, d.Catalog, d.Viewer, d.Playback)
	playbackHandler := handler.NewPlaybackHandler(d.Controller, d.Playback, d.Viewer)
	selectionHandler := handler.NewSelectionHandler(d.Controller, d.Viewer)
	settingsHandler := handler.NewSettingsHandler(d.Controller, d.Viewer, d.Config)
	evolutionHandler := handler.NewEvolutionHandler(d.Controller)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(120, time.Minute))
	{
		// Token exchange for the control endpoints
		api.POST("/auth/token", authHandler.Token)

		// Read-only endpoints stay available while the catalog loads
		api.GET("/scene", sceneHandler.GetScene)
		api.GET("/status", sceneHandler.GetStatus)
		api.GET("/settings", settingsHandler.GetSettings)

		// Everything index-addressed requires a loaded catalog
		loaded := api.Group("")
		loaded.Use(requireReady(d.Viewer))
		{
			loaded.GET("/steps", sceneHandler.GetSteps)
			loaded.GET("/evolution", evolutionHandler.GetSeries)
			loaded.GET("/evolution/chart", evolutionHandler.GetChart)

			controls := loaded.Group("")
			controls.Use(middleware.Auth(d.Config.JWTSecret))
			{
				controls.POST("/view/step", playbackHandler.Seek)
				controls.POST("/view/next", playbackHandler.Next)
				controls.POST("/view/prev", playbackHandler.Prev)
				controls.POST("/playback/toggle", playbackHandler.Toggle)
				controls.POST("/playback/speed", playbackHandler.SetSpeed)
				controls.POST("/select/feature", selectionHandler.ClickFeature)
				controls.POST("/select/clear", selectionHandler.ClickBackground)
				controls.POST("/settings/threshold", settingsHandler.SetThreshold)
				controls.POST("/settings/display", settingsHandler.SetDisplayOption)
				controls.POST("/settings/trajectory", settingsHandler.SetTrajectory)
				controls.POST("/settings/viewport", settingsHandler.SetViewport)
				controls.POST("/settings/reset", settingsHandler.Reset)
			}
		}
	}

	return r
}

// requireReady rejects navigation until the first catalog load completes
func requireReady(viewer *service.ViewerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !viewer.Ready() {
			response.ServiceUnavailable(c, "Catalog is still loading")
			c.Abort()
			return
		}
		c.Next()
	}
}
