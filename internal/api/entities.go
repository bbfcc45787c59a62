package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"oroya/internal/model"
	"oroya/internal/validate"
)

type entityReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// POST /api/projects/:projectId/entities
func CreateEntityHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")

		var req entityReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid_json", "Invalid JSON")
			return
		}

		ok, err := s.Projects.Exists(c.Request.Context(), projectID)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if !ok {
			notFound(c, "Project not found")
			return
		}

		// дубликаты имён считаем только внутри проекта-владельца
		names, err := s.Entities.NamesLower(c.Request.Context(), projectID, "")
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if fe := validate.EntityName(req.Name, validate.LowerSet(names)); fe != nil {
			oneFieldError(c, fe)
			return
		}
		if fe := validate.EntityDescription(req.Description); fe != nil {
			oneFieldError(c, fe)
			return
		}

		e := &model.Entity{
			ID:          model.NewID(),
			ProjectID:   projectID,
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
		}
		created, err := s.Entities.Create(c.Request.Context(), e)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// GET /api/projects/:projectId/entities
func ListEntitiesHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")

		ok, err := s.Projects.Exists(c.Request.Context(), projectID)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if !ok {
			notFound(c, "Project not found")
			return
		}

		all, err := s.Entities.FindByProject(c.Request.Context(), projectID)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusOK, all)
	}
}

// GET /api/entities/:entityId
func GetEntityHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := s.Entities.FindByID(c.Request.Context(), c.Param("entityId"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if e == nil {
			notFound(c, "Entity not found")
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

// PUT/PATCH /api/entities/:entityId
func UpdateEntityHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("entityId")

		var patch model.EntityPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, "invalid_json", "Invalid JSON")
			return
		}

		cur, err := s.Entities.FindByID(c.Request.Context(), id)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if cur == nil {
			notFound(c, "Entity not found")
			return
		}

		if patch.Name != nil {
			names, err := s.Entities.NamesLower(c.Request.Context(), cur.ProjectID, id)
			if err != nil {
				s.internalErr(c, err)
				return
			}
			if fe := validate.EntityName(*patch.Name, validate.LowerSet(names)); fe != nil {
				oneFieldError(c, fe)
				return
			}
			trimmed := strings.TrimSpace(*patch.Name)
			patch.Name = &trimmed
		}
		if patch.Description != nil {
			if fe := validate.EntityDescription(*patch.Description); fe != nil {
				oneFieldError(c, fe)
				return
			}
		}

		updated, err := s.Entities.Update(c.Request.Context(), id, patch)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if updated == nil {
			notFound(c, "Entity not found")
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DELETE /api/entities/:entityId
func DeleteEntityHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := s.Entities.Delete(c.Request.Context(), c.Param("entityId"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if !ok {
			notFound(c, "Entity not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Entity deleted"})
	}
}
