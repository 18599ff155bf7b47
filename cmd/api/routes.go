package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all routes
func (a *App) setupRoutes() {
	a.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	a.Router.GET("/health", a.DatasetHandler.HealthCheck)

	api := a.Router.Group("/api")
	{
		datasets := api.Group("/datasets")
		{
			datasets.GET("", a.DatasetHandler.ListDatasets)
			datasets.GET("/:name", a.DatasetHandler.GetDataset)
			datasets.POST("/:name/refresh", a.DatasetHandler.RefreshDataset)
		}
	}
}
