package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"oroya/internal/validate"
)

// Единый формат ошибок: {error, message} для одиночных,
// {errors: [FieldError]} для валидационных списков.

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": code, "message": msg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"error": validate.ErrNotFound, "message": msg})
}

func fieldErrors(c *gin.Context, errs []validate.FieldError) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
}

func oneFieldError(c *gin.Context, fe *validate.FieldError) {
	fieldErrors(c, []validate.FieldError{*fe})
}

// internalErr: наружу детали не отдаём, кроме dev-режима.
func (s *Server) internalErr(c *gin.Context, err error) {
	s.Log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("handler failed")
	msg := "Internal server error"
	if s.Cfg.DevMode {
		msg = err.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": validate.ErrInternal, "message": msg})
}
