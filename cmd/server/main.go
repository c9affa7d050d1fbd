package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jengzang/cellwatch-backend-go/internal/api"
	"github.com/jengzang/cellwatch-backend-go/internal/catalog"
	"github.com/jengzang/cellwatch-backend-go/internal/config"
	"github.com/jengzang/cellwatch-backend-go/internal/database"
	"github.com/jengzang/cellwatch-backend-go/internal/repository"
	"github.com/jengzang/cellwatch-backend-go/internal/service"
	"github.com/jengzang/cellwatch-backend-go/internal/view"
)

func main() {
	cfg := config.Load()

	// Initialize database
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	if err := database.NewMigrationManager(database.GetDB()).Run(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Repositories
	settingsRepo := repository.NewSettingsRepository(database.GetDB())
	catalogRepo := repository.NewCatalogRepository(database.GetDB())

	// Catalog over the boundary file directory
	client := http.DefaultClient
	source := catalog.NewSource(client, cfg.DataURL, cfg.DataFallbackURL, cfg.DataExt)
	cat := catalog.New(source, client, cfg.BoundaryPrefix, cfg.TrajectoryPrefix, cfg.MaxConcurrentFetch)

	// View state machine
	scene := view.NewMapScene()
	evolution := service.NewEvolutionService()
	controller := service.NewLayerController(scene, scene, evolution, cat, cfg.DefaultThreshold)
	playback := service.NewPlaybackScheduler(controller, cfg.SpeedMin, cfg.SpeedMax, cfg.SpeedDefault)
	persistence := service.NewPersistenceService(settingsRepo, cfg.ReloadMarkerWindow, cfg.DefaultThreshold)
	viewer := service.NewViewerService(cat, controller, playback, persistence, catalogRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial load and restore; fatal only when the data source never
	// becomes ready
	if err := viewer.Start(ctx); err != nil {
		log.Fatal("Failed to start viewer:", err)
	}

	// Poll for newly published boundary files
	watcher := catalog.NewWatcher(cat, catalogRepo, cfg.AutoCheckInterval, func(added []string) {
		viewer.Reload(ctx)
	})
	go watcher.Run(ctx)

	router := api.SetupRouter(api.Deps{
		Config:     cfg,
		Scene:      scene,
		Catalog:    cat,
		Controller: controller,
		Playback:   playback,
		Viewer:     viewer,
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
