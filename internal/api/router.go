package api

import (
	routes "venuelink/internal/api/handlers"

	"github.com/gin-gonic/gin"
)

// Services are the dependencies the HTTP handlers need
type Services struct {
	Info     map[string]string
	Checks   map[string]routes.Check
	Venues   routes.VenueCatalog
	Arrivals routes.ArrivalLog
	Tracker  routes.DistanceObserver
}

// SetupRouter initializes all application routes
func SetupRouter(r *gin.Engine, s Services) {
	// API group
	api := r.Group("/api")

	// Setup main handlers
	routes.SetupMainHandlers(r.Group(""), s.Info, s.Checks)

	// Setup venue and distance handlers
	routes.SetupVenueHandlers(api, s.Venues, s.Arrivals)
	routes.SetupDistanceHandlers(api, s.Tracker)
}
