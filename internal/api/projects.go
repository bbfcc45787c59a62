package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"oroya/internal/model"
	"oroya/internal/validate"
)

type projectReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// POST /api/projects
func CreateProjectHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req projectReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid_json", "Invalid JSON")
			return
		}

		names, err := s.Projects.NamesLower(c.Request.Context(), "")
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if fe := validate.ProjectName(req.Name, validate.LowerSet(names)); fe != nil {
			oneFieldError(c, fe)
			return
		}
		if fe := validate.ProjectDescription(req.Description); fe != nil {
			oneFieldError(c, fe)
			return
		}

		p := &model.Project{
			ID:          model.NewID(),
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
		}
		created, err := s.Projects.Create(c.Request.Context(), p)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// GET /api/projects
func ListProjectsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, err := s.Projects.FindAll(c.Request.Context())
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusOK, all)
	}
}

// GET /api/projects/:projectId
func GetProjectHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.Projects.FindByID(c.Request.Context(), c.Param("projectId"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if p == nil {
			notFound(c, "Project not found")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// PUT/PATCH /api/projects/:projectId
func UpdateProjectHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("projectId")

		var patch model.ProjectPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, "invalid_json", "Invalid JSON")
			return
		}

		ok, err := s.Projects.Exists(c.Request.Context(), id)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if !ok {
			notFound(c, "Project not found")
			return
		}

		if patch.Name != nil {
			names, err := s.Projects.NamesLower(c.Request.Context(), id)
			if err != nil {
				s.internalErr(c, err)
				return
			}
			if fe := validate.ProjectName(*patch.Name, validate.LowerSet(names)); fe != nil {
				oneFieldError(c, fe)
				return
			}
			trimmed := strings.TrimSpace(*patch.Name)
			patch.Name = &trimmed
		}
		if patch.Description != nil {
			if fe := validate.ProjectDescription(*patch.Description); fe != nil {
				oneFieldError(c, fe)
				return
			}
		}

		updated, err := s.Projects.Update(c.Request.Context(), id, patch)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if updated == nil {
			notFound(c, "Project not found")
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DELETE /api/projects/:projectId
// Каскад решает база: сущности, их поля, связи и привязки файлов уходят вместе.
func DeleteProjectHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := s.Projects.Delete(c.Request.Context(), c.Param("projectId"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if !ok {
			notFound(c, "Project not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Project deleted"})
	}
}
