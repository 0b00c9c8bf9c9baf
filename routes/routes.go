package routes

import (
	"net/http"
	"time"

	"facility-backend/controllers"
	"facility-backend/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Controllers bundles every handler set the router mounts.
type Controllers struct {
	Mappings    *controllers.MappingController
	Connections *controllers.ConnectionController
	Inventory   *controllers.InventoryController
	Jobs        *controllers.JobController
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}
}

// SetupRouter wires the HTTP API. gatherer may be nil to leave out /metrics.
func SetupRouter(ctrl Controllers, corsOrigins []string, gatherer prometheus.Gatherer, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(log), gin.Recovery())
	r.Use(cors.New(corsConfig(corsOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		mappings := api.Group("/mappings")
		{
			mappings.GET("", ctrl.Mappings.GetMappings)
			mappings.POST("", ctrl.Mappings.CreateMapping)
			mappings.GET("/:id", ctrl.Mappings.GetMapping)
			mappings.DELETE("/:id", ctrl.Mappings.DeleteMapping)
			mappings.POST("/:id/materialize", ctrl.Mappings.Materialize)
			mappings.DELETE("/:id/staging", ctrl.Mappings.ClearStaging)
			mappings.GET("/:id/staging/export", ctrl.Mappings.ExportStaging)
			mappings.POST("/:id/link", ctrl.Mappings.LinkMapping)
			mappings.DELETE("/:id/link", ctrl.Mappings.UnlinkMapping)
		}

		connections := api.Group("/connections")
		{
			connections.GET("", ctrl.Connections.GetConnections)
			connections.POST("", ctrl.Connections.CreateConnection)

			// static paths take precedence over /:id
			connections.POST("/reset", ctrl.Connections.ResetConnections)
			connections.GET("/verify", ctrl.Connections.VerifyConnections)

			connections.DELETE("/:id", ctrl.Connections.DeleteConnection)
		}

		inventory := api.Group("/inventory")
		{
			inventory.GET("/:side", ctrl.Inventory.GetRooms)
			inventory.GET("/:side/departments", ctrl.Inventory.GetDepartments)
		}

		jobRoutes := api.Group("/jobs")
		{
			jobRoutes.GET("", ctrl.Jobs.GetJobs)
			jobRoutes.POST("/:kind", ctrl.Jobs.RunJob)
		}
	}

	return r
}
