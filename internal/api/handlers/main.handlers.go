package routes

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// Check reports the health of one dependency
type Check func(ctx context.Context) error

// SetupMainHandlers registers the service info and health endpoints
func SetupMainHandlers(router *gin.RouterGroup, info map[string]string, checks map[string]Check) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	})

	router.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		deps := gin.H{}

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := checks[name](c.Request.Context()); err != nil {
				deps[name] = gin.H{"status": "down", "error": err.Error()}
				status = http.StatusServiceUnavailable
			} else {
				deps[name] = gin.H{"status": "up"}
			}
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":       overall,
			"dependencies": deps,
		})
	})
}
