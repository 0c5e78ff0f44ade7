package api

import (
	"variation-pipeline/internal/api/handler"
	"variation-pipeline/pkg/router"

	_ "variation-pipeline/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

// RegisterRoutes wires the run endpoints and the swagger UI
func RegisterRoutes(r *router.Router, runs *handler.RunHandler) {
	r.POST("/api/v1/runs", runs.CreateRun)
	r.GET("/api/v1/runs", runs.ListRuns)
	// More specific routes first
	r.GET("/api/v1/runs/*/events", runs.GetRunEvents)
	r.GET("/api/v1/runs/*", runs.GetRun)
	r.DELETE("/api/v1/runs/*", runs.DeleteRun)

	r.Handle("/swagger/", httpSwagger.WrapHandler)
}
