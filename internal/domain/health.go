package domain

import "time"

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status    HealthStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	AgentID   string       `json:"agent_id"`
	Message   string       `json:"message,omitempty"`
}

// AgentStatus is a point-in-time snapshot of the agent's work counters.
type AgentStatus struct {
	AgentID       string `json:"agent_id"`
	Running       bool   `json:"is_running"`
	PollInterval  string `json:"poll_interval"`
	Engines       int    `json:"engines"`
	RequestsDone  int64  `json:"requests_done"`
	RequestsError int64  `json:"requests_failed"`
	ProbesDone    int64  `json:"probes_done"`
}
