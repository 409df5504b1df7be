package domain

import "time"

// HealthStatus indicates whether the backend service is reachable and
// configured for media processing.
type HealthStatus string

const (
	HealthStatusOK          HealthStatus = "ok"
	HealthStatusDegraded    HealthStatus = "degraded"
	HealthStatusUnreachable HealthStatus = "unreachable"
)

// HealthReport is the startup backend check result shown in the UI.
type HealthReport struct {
	GeneratedAt       time.Time    `json:"generatedAt"`
	Status            HealthStatus `json:"status"`
	ServiceConfigured bool         `json:"serviceConfigured"`
	Message           string       `json:"message,omitempty"`
}
