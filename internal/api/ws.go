package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"oroya/internal/logstream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// API локальный, фронт ходит с file:// и localhost
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GET /ws/logs?projectId=&method=&level=&status=
// Стримит события журнала по websocket, фильтры берём из query.
func LogStreamHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade сам пишет ответ клиенту
			s.Log.Warn().Err(err).Msg("ws upgrade failed")
			return
		}
		defer conn.Close()

		filter := logstream.Filter{
			ProjectID: c.Query("projectId"),
			Method:    c.Query("method"),
			Level:     c.Query("level"),
		}
		if v := c.Query("status"); v != "" {
			if st, err := strconv.Atoi(v); err == nil {
				filter.Status = st
			}
		}

		events, dispose := s.Hub.Subscribe(filter)
		defer dispose()

		// читатель нужен только чтобы заметить закрытие со стороны клиента
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
