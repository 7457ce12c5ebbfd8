package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/betbot/polycopy/internal/copytrade"
	"github.com/betbot/polycopy/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// DefaultTenant backs the single-tenant /api/start, /api/stop and /api/status routes.
const DefaultTenant = "default"

type Config struct {
	Registry *copytrade.Registry
	// DefaultTenant overrides the tenant used by the single-tenant routes.
	DefaultTenant string
}

type Server struct {
	reg           *copytrade.Registry
	defaultTenant string
	upgrader      websocket.Upgrader
}

func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if strings.TrimSpace(cfg.DefaultTenant) == "" {
		cfg.DefaultTenant = DefaultTenant
	}
	return &Server{
		reg:           cfg.Registry,
		defaultTenant: cfg.DefaultTenant,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// the console is served from the same origin; API clients send no Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.GET("/stats", s.handleStats)

	// single-tenant routes used by the bundled console
	api.GET("/status", s.forTenant(s.defaultTenant, s.handleStatus))
	api.POST("/start", s.forTenant(s.defaultTenant, s.handleStart))
	api.POST("/stop", s.forTenant(s.defaultTenant, s.handleStop))

	tenants := api.Group("/tenants")
	tenants.GET("", s.handleTenants)
	tenantID := tenants.Group("/:tenantID")
	tenantID.POST("/start", s.handleStart)
	tenantID.POST("/stop", s.handleStop)
	tenantID.GET("/status", s.handleStatus)
	tenantID.DELETE("", s.handleRemove)
	tenantID.GET("/logs/ws", s.handleLogsWS)

	// UI
	r.GET("/", s.handleUI)

	return r
}

const tenantKey = "polycopy_tenant"

// forTenant pins the tenant for routes that carry no :tenantID.
func (s *Server) forTenant(tenant string, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(tenantKey, tenant)
		h(c)
	}
}

func tenantOf(c *gin.Context) string {
	if v, ok := c.Get(tenantKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return strings.TrimSpace(c.Param("tenantID"))
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// the status page polls every second; keep those at debug
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("http request failed")
			return
		}
		entry.Debug("http request")
	}
}

func writeMessage(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}
