package feedback

import "testing"

// TestNotifyAndDismiss verifies notice lifecycle.
func TestNotifyAndDismiss(t *testing.T) {
	s := NewSurface(nil, 10)

	id := s.Notify(LevelError, "Transcription failed: network error")
	if id == "" {
		t.Fatal("expected non-empty notice id")
	}

	active := s.Active()
	if len(active) != 1 || active[0].Message != "Transcription failed: network error" {
		t.Fatalf("active = %+v", active)
	}

	s.Dismiss(id)
	if len(s.Active()) != 0 {
		t.Fatal("expected no active notices after dismiss")
	}

	s.Dismiss("unknown")
}

// TestNoticeHistoryIsBounded checks old notices are trimmed.
func TestNoticeHistoryIsBounded(t *testing.T) {
	s := NewSurface(nil, 3)
	for i := 0; i < 5; i++ {
		s.Notify(LevelInfo, "notice")
	}

	if got := len(s.Active()); got != 3 {
		t.Fatalf("active = %d notices, want 3", got)
	}
}

// TestLoadingIndicatorToggles checks show/hide state.
func TestLoadingIndicatorToggles(t *testing.T) {
	s := NewSurface(nil, 10)

	s.ShowLoading("Transcribing audio…")
	if !s.Loading() {
		t.Fatal("expected loading visible")
	}

	s.HideLoading()
	if s.Loading() {
		t.Fatal("expected loading hidden")
	}
}
