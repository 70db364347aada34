package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/datakit-backend/internal/handlers"
	"github.com/yungbote/datakit-backend/internal/middleware"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log                *logger.Logger
	AllowOrigins       []string
	ModelsHandler      *handlers.ModelsHandler
	EntriesHandler     *handlers.EntriesHandler
	MaintenanceHandler *handlers.MaintenanceHandler
	JobsHandler        *handlers.JobsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Actor-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Models
		api.POST("/models", cfg.ModelsHandler.Create)
		api.POST("/models/search", cfg.ModelsHandler.Paginate)
		api.POST("/models/delete", cfg.ModelsHandler.Delete)
		api.POST("/models/restore", cfg.ModelsHandler.Restore)
		api.GET("/models/deleted/:id", cfg.ModelsHandler.GetDeleted)
		api.GET("/models/:id", cfg.ModelsHandler.Get)
		api.PATCH("/models/:id", cfg.ModelsHandler.Update)

		// Entries
		api.POST("/entries", cfg.EntriesHandler.Create)
		api.POST("/entries/search", cfg.EntriesHandler.Paginate)
		api.POST("/entries/delete", cfg.EntriesHandler.Delete)
		api.POST("/entries/restore", cfg.EntriesHandler.Restore)
		api.GET("/entries/deleted/:id", cfg.EntriesHandler.GetDeleted)
		api.GET("/entries/:id", cfg.EntriesHandler.Get)
		api.PATCH("/entries/:id", cfg.EntriesHandler.Update)

		// Maintenance
		api.POST("/maintenance/indexes/sync", cfg.MaintenanceHandler.SyncIndexes)
		api.GET("/maintenance/indexes/columns", cfg.MaintenanceHandler.ListColumns)
		api.GET("/maintenance/indexes/orphans", cfg.MaintenanceHandler.ListOrphans)
		api.POST("/maintenance/indexes/remove", cfg.MaintenanceHandler.RemoveColumns)
		api.POST("/maintenance/purge", cfg.MaintenanceHandler.StartPurge)

		// Jobs
		api.GET("/jobs/:id", cfg.JobsHandler.GetJobByID)
	}

	return router
}
