package api

import (
	"shrinkurl/internal/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter initializes and configures the Gin router.
func SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(logging.GinLogger(), gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	r.Use(cors.New(config))

	r.GET("/health", HealthCheckHandler)
	r.GET("/status", StatusHandler)

	r.POST("/generate", GenerateShortCodeHandler)
	r.GET("/links", ListLinksHandler)
	r.GET("/:shortCode", RedirectHandler)
	r.GET("/:shortCode/stats", StatsHandler)

	return r
}
