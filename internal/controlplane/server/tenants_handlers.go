package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/betbot/polycopy/internal/activity"
	"github.com/betbot/polycopy/internal/copytrade"
	"github.com/betbot/polycopy/internal/metrics"
	"github.com/betbot/polycopy/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	msgDeployed       = "Deployment Successful"
	msgStopped        = "Termination sequence complete."
	msgAlreadyRunning = "PolyCopy Engine is already active."
	msgMandatory      = "Target wallet and Private Key are mandatory."
	msgShuttingDown   = "Server is shutting down."
	msgRemoved        = "Tenant removed."
)

type startRequest struct {
	Target      string          `json:"target"`
	PrivateKey  string          `json:"private_key"`
	APIKey      string          `json:"api_key"`
	APISecret   string          `json:"api_secret"`
	Passphrase  string          `json:"passphrase"`
	Amount      activity.Amount `json:"amount"`
	MatchAmount flexBool        `json:"match_amount"`
}

// flexBool accepts true/false as JSON booleans, strings or numbers.
// Anything unrecognised reads as false.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*b = false
		return nil
	}
	if len(raw) >= 2 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			raw = strings.TrimSpace(s)
		}
	}
	switch strings.ToLower(raw) {
	case "yes", "on":
		*b = true
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			v = f != 0
		}
	}
	*b = flexBool(v)
	return nil
}

func (r startRequest) engineConfig() copytrade.EngineConfig {
	cfg := copytrade.EngineConfig{
		TargetWallet:  r.Target,
		PrivateKey:    r.PrivateKey,
		APIKey:        r.APIKey,
		APISecret:     r.APISecret,
		APIPassphrase: r.Passphrase,
		MatchAmount:   bool(r.MatchAmount),
	}
	// missing or unparsable amount falls back to the configured default
	if r.Amount.Valid && r.Amount.Value.IsPositive() {
		cfg.AmountPerTrade = r.Amount.Value
	}
	return cfg
}

func (s *Server) handleStart(c *gin.Context) {
	tenant := tenantOf(c)

	var req startRequest
	body, err := c.GetRawData()
	if err != nil {
		writeMessage(c, http.StatusBadRequest, "could not read request body")
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeMessage(c, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	err = s.reg.Start(tenant, req.engineConfig())
	switch {
	case err == nil:
		logger.WithField("tenant", tenant).Infof("engine deployed for %s", strings.ToLower(strings.TrimSpace(req.Target)))
		writeMessage(c, http.StatusOK, msgDeployed)
	case errors.Is(err, copytrade.ErrAlreadyRunning):
		writeMessage(c, http.StatusConflict, msgAlreadyRunning)
	case errors.Is(err, copytrade.ErrShuttingDown):
		writeMessage(c, http.StatusServiceUnavailable, msgShuttingDown)
	case errors.Is(err, copytrade.ErrMissingTenant):
		writeMessage(c, http.StatusBadRequest, "tenant id is required")
	case copytrade.IsValidationError(err):
		writeMessage(c, http.StatusBadRequest, msgMandatory)
	default:
		logger.WithField("tenant", tenant).Errorf("start failed: %v", err)
		writeMessage(c, http.StatusInternalServerError, "could not start engine")
	}
}

func (s *Server) handleStop(c *gin.Context) {
	s.reg.Stop(tenantOf(c))
	writeMessage(c, http.StatusOK, msgStopped)
}

// handleRemove 删除已停止租户的状态与日志
func (s *Server) handleRemove(c *gin.Context) {
	if err := s.reg.Remove(tenantOf(c)); err != nil {
		writeMessage(c, http.StatusConflict, msgAlreadyRunning)
		return
	}
	writeMessage(c, http.StatusOK, msgRemoved)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.reg.Status(tenantOf(c)))
}

func (s *Server) handleTenants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tenants": s.reg.Tenants()})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Snapshot())
}
