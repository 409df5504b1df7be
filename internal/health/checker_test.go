package health

import (
	"context"
	"errors"
	"testing"

	"speechflow/internal/domain"
	"speechflow/internal/remote"
)

// stubClient returns a canned health result.
type stubClient struct {
	health remote.Health
	err    error
}

func (s *stubClient) Transcribe(context.Context, remote.Media, string) (remote.Transcription, error) {
	return remote.Transcription{}, nil
}

func (s *stubClient) Translate(context.Context, string, string, string) (string, error) {
	return "", nil
}

func (s *stubClient) SynthesizeSpeech(context.Context, string, string, string, string) ([]byte, error) {
	return nil, nil
}

func (s *stubClient) CheckHealth(context.Context) (remote.Health, error) {
	return s.health, s.err
}

// recordingNotifier captures warnings.
type recordingNotifier struct {
	warnings []string
}

func (n *recordingNotifier) Warn(message string) {
	n.warnings = append(n.warnings, message)
}

// TestRunHealthyBackend verifies no warning for a configured backend.
func TestRunHealthyBackend(t *testing.T) {
	checker := NewChecker(&stubClient{
		health: remote.Health{Status: "healthy", ServiceConfigured: true},
	})
	notifier := &recordingNotifier{}

	report := checker.Run(context.Background(), notifier)
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("status = %s, want ok", report.Status)
	}
	if len(notifier.warnings) != 0 {
		t.Fatalf("warnings = %v, want none", notifier.warnings)
	}
}

// TestRunUnconfiguredBackendWarns verifies the degraded path.
func TestRunUnconfiguredBackendWarns(t *testing.T) {
	checker := NewChecker(&stubClient{
		health: remote.Health{Status: "healthy", ServiceConfigured: false},
	})
	notifier := &recordingNotifier{}

	report := checker.Run(context.Background(), notifier)
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("status = %s, want degraded", report.Status)
	}
	if len(notifier.warnings) != 1 {
		t.Fatalf("warnings = %v, want one", notifier.warnings)
	}
}

// TestRunUnreachableBackendWarns verifies a failed call is treated as
// cannot-reach-backend.
func TestRunUnreachableBackendWarns(t *testing.T) {
	checker := NewChecker(&stubClient{err: errors.New("connection refused")})
	notifier := &recordingNotifier{}

	report := checker.Run(context.Background(), notifier)
	if report.Status != domain.HealthStatusUnreachable {
		t.Fatalf("status = %s, want unreachable", report.Status)
	}
	if len(notifier.warnings) != 1 {
		t.Fatalf("warnings = %v, want one", notifier.warnings)
	}
}
