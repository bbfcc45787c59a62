package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"oroya/internal/model"
	"oroya/internal/validate"
)

type relationshipReq struct {
	SourceEntityID   string  `json:"sourceEntityId"`
	TargetEntityID   string  `json:"targetEntityId"`
	RelationshipType string  `json:"relationshipType"`
	SourceFieldID    *string `json:"sourceFieldId"`
	TargetFieldID    *string `json:"targetFieldId"`
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	IsRequired       bool    `json:"isRequired"`
	CascadeDelete    bool    `json:"cascadeDelete"`
}

// POST /api/relationships
func CreateRelationshipHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req relationshipReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid_json", "Invalid JSON")
			return
		}

		if !model.IsRelationshipType(req.RelationshipType) {
			oneFieldError(c, validate.Ferr(validate.ErrEnumInvalid, "relationshipType",
				fmt.Sprintf("Unknown relationship type '%s'", req.RelationshipType)))
			return
		}

		for _, pair := range []struct{ field, id string }{
			{"sourceEntityId", req.SourceEntityID},
			{"targetEntityId", req.TargetEntityID},
		} {
			ok, err := s.Entities.Exists(c.Request.Context(), pair.id)
			if err != nil {
				s.internalErr(c, err)
				return
			}
			if !ok {
				notFound(c, "Entity not found: "+pair.field)
				return
			}
		}

		// опциональные якоря должны принадлежать своим сущностям
		if fe := s.checkAnchor(c, req.SourceFieldID, req.SourceEntityID, "sourceFieldId"); fe != nil {
			oneFieldError(c, fe)
			return
		}
		if fe := s.checkAnchor(c, req.TargetFieldID, req.TargetEntityID, "targetFieldId"); fe != nil {
			oneFieldError(c, fe)
			return
		}

		rel := &model.EntityRelationship{
			ID:               model.NewID(),
			SourceEntityID:   req.SourceEntityID,
			TargetEntityID:   req.TargetEntityID,
			RelationshipType: req.RelationshipType,
			SourceFieldID:    req.SourceFieldID,
			TargetFieldID:    req.TargetFieldID,
			Name:             req.Name,
			Description:      req.Description,
			IsRequired:       req.IsRequired,
			CascadeDelete:    req.CascadeDelete,
		}
		created, err := s.Relationships.Create(c.Request.Context(), rel)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func (s *Server) checkAnchor(c *gin.Context, fieldID *string, entityID, name string) *validate.FieldError {
	if fieldID == nil || *fieldID == "" {
		return nil
	}
	f, err := s.Fields.FindByID(c.Request.Context(), *fieldID)
	if err != nil || f == nil {
		return validate.Ferr(validate.ErrRefInvalid, name, "Anchor field does not exist")
	}
	if f.EntityID != entityID {
		return validate.Ferr(validate.ErrRefInvalid, name, "Anchor field does not belong to the entity")
	}
	return nil
}

// GET /api/relationships?entityId=
func ListRelationshipsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			out []model.EntityRelationship
			err error
		)
		if entityID := c.Query("entityId"); entityID != "" {
			out, err = s.Relationships.FindByEntity(c.Request.Context(), entityID)
		} else {
			out, err = s.Relationships.FindAll(c.Request.Context())
		}
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/relationships/detailed
func DetailedRelationshipsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.Relationships.FindWithEntityDetails(c.Request.Context())
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/relationships/exists?sourceEntityId=&targetEntityId=&excludeId=
// Дубли рёбер модель не запрещает; это явная проверка для форм.
func RelationshipExistsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		src := c.Query("sourceEntityId")
		tgt := c.Query("targetEntityId")
		if src == "" || tgt == "" {
			badRequest(c, "missing_param", "sourceEntityId and targetEntityId are required")
			return
		}
		ok, err := s.Relationships.ExistsBetweenEntities(c.Request.Context(), src, tgt, c.Query("excludeId"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"exists": ok})
	}
}

// GET /api/relationships/:id
func GetRelationshipHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		rel, err := s.Relationships.FindByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if rel == nil {
			notFound(c, "Relationship not found")
			return
		}
		c.JSON(http.StatusOK, rel)
	}
}

// PUT/PATCH /api/relationships/:id
func UpdateRelationshipHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var patch model.RelationshipPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, "invalid_json", "Invalid JSON")
			return
		}

		cur, err := s.Relationships.FindByID(c.Request.Context(), id)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if cur == nil {
			notFound(c, "Relationship not found")
			return
		}

		if patch.RelationshipType != nil && !model.IsRelationshipType(*patch.RelationshipType) {
			oneFieldError(c, validate.Ferr(validate.ErrEnumInvalid, "relationshipType",
				fmt.Sprintf("Unknown relationship type '%s'", *patch.RelationshipType)))
			return
		}
		if patch.SourceFieldID != nil && *patch.SourceFieldID != "" {
			if fe := s.checkAnchor(c, patch.SourceFieldID, cur.SourceEntityID, "sourceFieldId"); fe != nil {
				oneFieldError(c, fe)
				return
			}
		}
		if patch.TargetFieldID != nil && *patch.TargetFieldID != "" {
			if fe := s.checkAnchor(c, patch.TargetFieldID, cur.TargetEntityID, "targetFieldId"); fe != nil {
				oneFieldError(c, fe)
				return
			}
		}

		updated, err := s.Relationships.Update(c.Request.Context(), id, patch)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if updated == nil {
			notFound(c, "Relationship not found")
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DELETE /api/relationships/:id
func DeleteRelationshipHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := s.Relationships.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if !ok {
			notFound(c, "Relationship not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Relationship deleted"})
	}
}
