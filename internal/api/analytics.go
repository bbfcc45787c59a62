package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"oroya/internal/store"
)

// GET /api/analytics/stats?timeRange=24h|7d|30d
func AnalyticsStatsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var window time.Duration
		switch c.DefaultQuery("timeRange", "24h") {
		case "7d":
			window = 7 * 24 * time.Hour
		case "30d":
			window = 30 * 24 * time.Hour
		default:
			window = 24 * time.Hour
		}

		stats, err := s.Logs.Stats(c.Request.Context(), time.Now().Add(-window))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// GET /api/analytics/logs?page=&limit=&method=&status=&level=&path=
func AnalyticsLogsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := store.LogQuery{
			Method: c.Query("method"),
			Level:  c.Query("level"),
			Path:   c.Query("path"),
		}
		q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
		q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
		if v := c.Query("status"); v != "" {
			st, err := strconv.Atoi(v)
			if err != nil {
				badRequest(c, "invalid_param", "status must be a number")
				return
			}
			q.Status = st
		}

		logs, total, err := s.Logs.Search(c.Request.Context(), q)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"logs":  logs,
			"total": total,
			"page":  q.Page,
			"limit": q.Limit,
		})
	}
}
