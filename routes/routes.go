package routes

import (
	"listing-service/controllers"
	"listing-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterListingRoutes sets up all listing-related routes.
func RegisterListingRoutes(r *gin.Engine, lc *controllers.ListingController) {
	listingRoutes := r.Group("/listings")

	// Internal routes (protected by auth middleware)
	listingRoutes.Use(middleware.AuthMiddleware())
	listingRoutes.GET("/jobs/:id", lc.GetJobStatus)
	listingRoutes.GET("/batches/:id", lc.GetBatch)

	// Admin-only routes
	adminRoutes := listingRoutes.Group("")
	adminRoutes.Use(middleware.AdminOnly())
	adminRoutes.POST("/generate", lc.GenerateListings)
	adminRoutes.POST("/sync-status", lc.SyncListedStatus)
}
