package api

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"oroya/internal/logstream"
	"oroya/internal/model"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newRequestID — ULID: сортируется по времени, удобно grep-ать в журнале.
func newRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// RequestLogger пишет каждый запрос в zerolog, в api_logs и в live-стрим.
// Сам стрим и healthz не журналируем, иначе получается шум и самозапись.
func RequestLogger(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.FullPath() == "/ws/logs" || c.FullPath() == "/healthz" {
			c.Next()
			return
		}

		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = newRequestID()
		}
		c.Header("X-Request-ID", reqID)

		c.Next()

		status := c.Writer.Status()
		dur := time.Since(start)

		level := "info"
		switch {
		case status >= 500:
			level = "error"
		case status >= 400:
			level = "warn"
		}

		msg := ""
		if len(c.Errors) > 0 {
			msg = c.Errors.String()
		}

		var ev *zerolog.Event
		switch level {
		case "error":
			ev = s.Log.Error()
		case "warn":
			ev = s.Log.Warn()
		default:
			ev = s.Log.Info()
		}
		ev.Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", dur).
			Str("ip", c.ClientIP()).
			Msg("request")

		var projectID *string
		if p := c.Param("projectId"); p != "" {
			projectID = &p
		}

		row := &model.APILog{
			ID:         model.NewID(),
			RequestID:  reqID,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Status:     status,
			DurationMs: dur.Milliseconds(),
			Level:      level,
			ProjectID:  projectID,
			ClientIP:   c.ClientIP(),
			Message:    msg,
			CreatedAt:  start.UTC(),
		}
		// контекст запроса к этому моменту может быть уже отменён
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Logs.Insert(ctx, row); err != nil {
			s.Log.Warn().Err(err).Msg("api log insert failed")
		}
		cancel()

		sev := logstream.Event{
			Ts:         start,
			RequestID:  reqID,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Status:     status,
			DurationMs: dur.Milliseconds(),
			Level:      level,
			Message:    msg,
		}
		if projectID != nil {
			sev.ProjectID = *projectID
		}
		s.Hub.Publish(sev)
	}
}
