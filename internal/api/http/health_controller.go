package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
)

// AgentState is what the controller needs from the running agent.
type AgentState interface {
	HealthCheck(ctx context.Context) error
	GetStatus() domain.AgentStatus
}

type HealthController struct {
	agent   AgentState
	agentID string
	version string
}

func NewHealthController(agent AgentState, agentID, version string) *HealthController {
	return &HealthController{
		agent:   agent,
		agentID: agentID,
		version: version,
	}
}

// Health reports whether the agent loop is running.
func (h *HealthController) Health(c *gin.Context) {
	if err := h.agent.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, domain.HealthResponse{
			Status:    domain.HealthStatusUnhealthy,
			Timestamp: time.Now().UTC(),
			AgentID:   h.agentID,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, domain.HealthResponse{
		Status:    domain.HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		AgentID:   h.agentID,
		Message:   "Agent is running",
	})
}

func (h *HealthController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.agent.GetStatus())
}

// Ready reports whether the agent can take probe requests.
func (h *HealthController) Ready(c *gin.Context) {
	if err := h.agent.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not_ready",
			"agent":     h.agentID,
			"message":   err.Error(),
			"timestamp": time.Now().UTC(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"agent":     h.agentID,
		"message":   "Agent is ready to process probe requests",
		"timestamp": time.Now().UTC(),
	})
}

func (h *HealthController) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"agent_id":  h.agentID,
		"status":    h.agent.GetStatus(),
		"version":   h.version,
		"timestamp": time.Now().UTC(),
		"components": []string{
			"request_consumer",
			"probe_scheduler",
			"result_publisher",
			"health_checker",
		},
	})
}
