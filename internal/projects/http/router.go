package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	projects := rg.Group("/projects")
	projects.POST("", h.create)
	projects.GET("", h.list)
	projects.GET("/:project_id", h.get)
	projects.PATCH("/:project_id", h.update)
	projects.DELETE("/:project_id", h.delete)
	projects.PUT("/:project_id/phases/:phase/tools/:tool", h.saveTool)
	projects.GET("/:project_id/progress", h.progress)
	projects.POST("/:project_id/dataset", h.uploadDataset)
	projects.GET("/:project_id/dataset", h.getDataset)
	projects.POST("/:project_id/sync", h.sync)
	projects.GET("/:project_id/export", h.export)

	me := rg.Group("/me")
	me.GET("/summary", h.summary)
	me.GET("/stats", h.stats)
}
