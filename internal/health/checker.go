// Package health runs the one-shot startup check against the backend
// media-processing service.
package health

import (
	"context"
	"time"

	"speechflow/internal/domain"
	"speechflow/internal/remote"
)

// Notifier surfaces a startup warning to the user.
type Notifier interface {
	Warn(message string)
}

// Checker queries backend readiness once at startup.
type Checker struct {
	client remote.Client
	now    func() time.Time
}

// NewChecker builds a checker over the remote collaborator.
func NewChecker(client remote.Client) *Checker {
	return &Checker{client: client, now: time.Now}
}

// Run performs the health call and maps the outcome to a report. An
// unreachable backend or an unconfigured service produces a warning through
// the notifier; neither blocks startup.
func (c *Checker) Run(ctx context.Context, notifier Notifier) domain.HealthReport {
	report := domain.HealthReport{GeneratedAt: c.now().UTC()}

	health, err := c.client.CheckHealth(ctx)
	if err != nil {
		report.Status = domain.HealthStatusUnreachable
		report.Message = "Cannot reach the processing backend. Check that the service is running."
		if notifier != nil {
			notifier.Warn(report.Message)
		}
		return report
	}

	report.ServiceConfigured = health.ServiceConfigured
	if !health.ServiceConfigured {
		report.Status = domain.HealthStatusDegraded
		report.Message = "The processing backend is reachable but not configured for media processing."
		if notifier != nil {
			notifier.Warn(report.Message)
		}
		return report
	}

	report.Status = domain.HealthStatusOK
	return report
}
