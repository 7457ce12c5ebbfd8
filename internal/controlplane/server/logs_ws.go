package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/betbot/polycopy/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 15 * time.Second
)

// handleLogsWS streams log lines of the tenant's current engine as text frames.
// ?since=<seq> skips lines already seen; by default the whole buffer is replayed.
// The stream closes once that engine has stopped and its last lines are sent.
func (s *Server) handleLogsWS(c *gin.Context) {
	tenant := tenantOf(c)
	e, ok := s.reg.Engine(tenant)
	if !ok {
		writeMessage(c, http.StatusNotFound, "tenant not found")
		return
	}

	var last uint64
	if v := strings.TrimSpace(c.Query("since")); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			last = n
		}
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写回错误响应
		logger.WithField("tenant", tenant).Debugf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// 读循环只用于感知客户端关闭
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	flush := func() bool {
		entries, _ := e.Logs().Since(last)
		for _, en := range entries {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(en.Line())); err != nil {
				return false
			}
			last = en.Seq
		}
		return true
	}

	for {
		_, changed := e.Logs().Since(last)
		if !flush() {
			return
		}
		select {
		case <-changed:
		case <-e.Done():
			if flush() {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "engine stopped"))
			}
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
