package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"oroya/internal/model"
	"oroya/internal/store"
	"oroya/internal/validate"
)

type fieldReq struct {
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	Required          bool    `json:"required"`
	IsUnique          bool    `json:"isUnique"`
	DefaultValue      *string `json:"defaultValue"`
	MaxLength         *int    `json:"maxLength"`
	Description       *string `json:"description"`
	AcceptsMultiple   bool    `json:"acceptsMultiple"`
	MaxFileSize       *int64  `json:"maxFileSize"`
	AllowedExtensions *string `json:"allowedExtensions"`
	IsForeignKey      bool    `json:"isForeignKey"`
	ForeignEntityID   *string `json:"foreignEntityId"`
	ForeignFieldID    *string `json:"foreignFieldId"`
}

// POST /api/projects/:projectId/entities/:entityId/fields
func CreateFieldHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")
		entityID := c.Param("entityId")

		var req fieldReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid_json", "Invalid JSON")
			return
		}

		entity, err := s.Entities.FindByID(c.Request.Context(), entityID)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if entity == nil || entity.ProjectID != projectID {
			notFound(c, "Entity not found in this project")
			return
		}

		names, err := s.Fields.NamesLower(c.Request.Context(), entityID, "")
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if fe := validate.FieldName(req.Name, validate.LowerSet(names)); fe != nil {
			oneFieldError(c, fe)
			return
		}

		f := &model.Field{
			ID:                model.NewID(),
			EntityID:          entityID,
			Name:              strings.TrimSpace(req.Name),
			Type:              req.Type,
			Required:          req.Required,
			IsUnique:          req.IsUnique,
			DefaultValue:      req.DefaultValue,
			MaxLength:         req.MaxLength,
			Description:       req.Description,
			AcceptsMultiple:   req.AcceptsMultiple,
			MaxFileSize:       req.MaxFileSize,
			AllowedExtensions: req.AllowedExtensions,
			IsForeignKey:      req.IsForeignKey,
			ForeignEntityID:   req.ForeignEntityID,
			ForeignFieldID:    req.ForeignFieldID,
		}
		if errs := validate.FieldPayload(f); len(errs) > 0 {
			fieldErrors(c, errs)
			return
		}

		// FK-проверки и insert идут одной транзакцией внутри репозитория
		created, err := s.Fields.CreateChecked(c.Request.Context(), f)
		if err != nil {
			if fe := fkFieldError(err); fe != nil {
				oneFieldError(c, fe)
				return
			}
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func fkFieldError(err error) *validate.FieldError {
	switch {
	case errors.Is(err, store.ErrForeignEntityMissing):
		return validate.Ferr(validate.ErrRefInvalid, "foreignEntityId", "Referenced entity does not exist")
	case errors.Is(err, store.ErrForeignFieldMissing):
		return validate.Ferr(validate.ErrRefInvalid, "foreignFieldId", "Referenced field does not exist")
	case errors.Is(err, store.ErrForeignFieldMismatch):
		return validate.Ferr(validate.ErrRefInvalid, "foreignFieldId", "Referenced field does not belong to the referenced entity")
	}
	return nil
}

// GET /api/entities/:entityId/fields
func ListFieldsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID := c.Param("entityId")

		ok, err := s.Entities.Exists(c.Request.Context(), entityID)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if !ok {
			notFound(c, "Entity not found")
			return
		}

		all, err := s.Fields.FindByEntity(c.Request.Context(), entityID)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusOK, all)
	}
}

// GET /api/fields/:fieldId
func GetFieldHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := s.Fields.FindByID(c.Request.Context(), c.Param("fieldId"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if f == nil {
			notFound(c, "Field not found")
			return
		}
		c.JSON(http.StatusOK, f)
	}
}

// PUT/PATCH /api/fields/:fieldId
func UpdateFieldHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("fieldId")

		var patch model.FieldPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, "invalid_json", "Invalid JSON")
			return
		}

		cur, err := s.Fields.FindByID(c.Request.Context(), id)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if cur == nil {
			notFound(c, "Field not found")
			return
		}

		if patch.Name != nil {
			names, err := s.Fields.NamesLower(c.Request.Context(), cur.EntityID, id)
			if err != nil {
				s.internalErr(c, err)
				return
			}
			if fe := validate.FieldName(*patch.Name, validate.LowerSet(names)); fe != nil {
				oneFieldError(c, fe)
				return
			}
			trimmed := strings.TrimSpace(*patch.Name)
			patch.Name = &trimmed
		}

		// проверяем итоговое состояние поля, а не только дельту
		next := *cur
		applyFieldPatch(&next, patch)
		if errs := validate.FieldPayload(&next); len(errs) > 0 {
			fieldErrors(c, errs)
			return
		}
		if next.IsForeignKey {
			if fe := s.checkForeignRef(c, &next); fe != nil {
				oneFieldError(c, fe)
				return
			}
		}

		updated, err := s.Fields.Update(c.Request.Context(), id, patch)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if updated == nil {
			notFound(c, "Field not found")
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func applyFieldPatch(f *model.Field, p model.FieldPatch) {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.IsUnique != nil {
		f.IsUnique = *p.IsUnique
	}
	if p.DefaultValue != nil {
		f.DefaultValue = p.DefaultValue
	}
	if p.MaxLength != nil {
		f.MaxLength = p.MaxLength
	}
	if p.Description != nil {
		f.Description = p.Description
	}
	if p.AcceptsMultiple != nil {
		f.AcceptsMultiple = *p.AcceptsMultiple
	}
	if p.MaxFileSize != nil {
		f.MaxFileSize = p.MaxFileSize
	}
	if p.AllowedExtensions != nil {
		f.AllowedExtensions = p.AllowedExtensions
	}
	if p.IsForeignKey != nil {
		f.IsForeignKey = *p.IsForeignKey
		// снятый FK-флаг зачищает ссылки, иначе поле не вернуть в обычное
		if !f.IsForeignKey {
			f.ForeignEntityID = nil
			f.ForeignFieldID = nil
		}
	}
	if p.ForeignEntityID != nil {
		f.ForeignEntityID = p.ForeignEntityID
	}
	if p.ForeignFieldID != nil {
		f.ForeignFieldID = p.ForeignFieldID
	}
}

func (s *Server) checkForeignRef(c *gin.Context, f *model.Field) *validate.FieldError {
	ok, err := s.Entities.Exists(c.Request.Context(), *f.ForeignEntityID)
	if err != nil || !ok {
		return validate.Ferr(validate.ErrRefInvalid, "foreignEntityId", "Referenced entity does not exist")
	}
	ff, err := s.Fields.FindByID(c.Request.Context(), *f.ForeignFieldID)
	if err != nil || ff == nil {
		return validate.Ferr(validate.ErrRefInvalid, "foreignFieldId", "Referenced field does not exist")
	}
	if ff.EntityID != *f.ForeignEntityID {
		return validate.Ferr(validate.ErrRefInvalid, "foreignFieldId", "Referenced field does not belong to the referenced entity")
	}
	return nil
}

// DELETE /api/fields/:fieldId
func DeleteFieldHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := s.Fields.Delete(c.Request.Context(), c.Param("fieldId"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if !ok {
			notFound(c, "Field not found")
			return
		}
		c.Status(http.StatusNoContent)
	}
}
