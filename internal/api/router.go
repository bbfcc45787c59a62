// api/router.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) Router() *gin.Engine {
	if !s.Cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s))

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/projects", CreateProjectHandler(s))
		apiGroup.GET("/projects", ListProjectsHandler(s))
		apiGroup.GET("/projects/:projectId", GetProjectHandler(s))
		apiGroup.PUT("/projects/:projectId", UpdateProjectHandler(s))
		apiGroup.PATCH("/projects/:projectId", UpdateProjectHandler(s))
		apiGroup.DELETE("/projects/:projectId", DeleteProjectHandler(s))

		apiGroup.POST("/projects/:projectId/entities", CreateEntityHandler(s))
		apiGroup.GET("/projects/:projectId/entities", ListEntitiesHandler(s))
		apiGroup.GET("/entities/:entityId", GetEntityHandler(s))
		apiGroup.PUT("/entities/:entityId", UpdateEntityHandler(s))
		apiGroup.PATCH("/entities/:entityId", UpdateEntityHandler(s))
		apiGroup.DELETE("/entities/:entityId", DeleteEntityHandler(s))

		apiGroup.POST("/projects/:projectId/entities/:entityId/fields", CreateFieldHandler(s))
		apiGroup.GET("/entities/:entityId/fields", ListFieldsHandler(s))
		apiGroup.GET("/fields/:fieldId", GetFieldHandler(s))
		apiGroup.PUT("/fields/:fieldId", UpdateFieldHandler(s))
		apiGroup.PATCH("/fields/:fieldId", UpdateFieldHandler(s))
		apiGroup.DELETE("/fields/:fieldId", DeleteFieldHandler(s))

		apiGroup.POST("/relationships", CreateRelationshipHandler(s))
		apiGroup.GET("/relationships", ListRelationshipsHandler(s))
		apiGroup.GET("/relationships/detailed", DetailedRelationshipsHandler(s))
		apiGroup.GET("/relationships/exists", RelationshipExistsHandler(s))
		apiGroup.GET("/relationships/:id", GetRelationshipHandler(s))
		apiGroup.PUT("/relationships/:id", UpdateRelationshipHandler(s))
		apiGroup.PATCH("/relationships/:id", UpdateRelationshipHandler(s))
		apiGroup.DELETE("/relationships/:id", DeleteRelationshipHandler(s))

		apiGroup.POST("/files/upload", UploadFileHandler(s))
		apiGroup.POST("/files/base64", UploadBase64Handler(s))
		apiGroup.GET("/files", ListFilesHandler(s))
		apiGroup.GET("/files/orphans", OrphanFilesHandler(s))
		apiGroup.GET("/files/:id", GetFileHandler(s))
		apiGroup.GET("/files/:id/download", DownloadFileHandler(s))
		apiGroup.POST("/files/:id/associate", AssociateFileHandler(s))
		apiGroup.DELETE("/files/:id", DeleteFileHandler(s))

		apiGroup.GET("/analytics/stats", AnalyticsStatsHandler(s))
		apiGroup.GET("/analytics/logs", AnalyticsLogsHandler(s))
	}

	r.GET("/ws/logs", LogStreamHandler(s))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return r
}
