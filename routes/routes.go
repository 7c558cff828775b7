package routes

import (
	"screener_backend/controllers"
	"screener_backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, jobs *services.RefreshJobService) {
	// Initialize controllers
	stockController := controllers.NewStockController(db)
	refreshController := controllers.NewRefreshController(jobs)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Refresh job routes
		refresh := api.Group("/refresh")
		{
			refresh.POST("/start", refreshController.StartRefresh)
			refresh.GET("/status", refreshController.GetRefreshStatus)
			refresh.POST("/reset", refreshController.ResetRefresh)
		}

		// Stock routes
		stocks := api.Group("/stocks")
		{
			stocks.GET("", stockController.GetStocks)
			stocks.GET("/:symbol/prices", stockController.GetStockPrices)
			stocks.GET("/:symbol/indicators", stockController.GetStockIndicators)
		}
	}
}
