package feedback

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Emitter pushes UI events to the webview.
type Emitter interface {
	Emit(name string, data ...any)
}

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one dismissible notification.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProgressUpdate describes the current in-flight stage for the progress
// indicator.
type ProgressUpdate struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Surface drives the loading indicator, progress indicator, and dismissible
// notifications. Pure presentation: it never touches workflow state.
type Surface struct {
	mu         sync.Mutex
	emitter    Emitter
	maxNotices int
	notices    []Notice
	loading    bool
}

// NewSurface creates a feedback surface with a bounded notice history.
func NewSurface(emitter Emitter, maxNotices int) *Surface {
	if maxNotices <= 0 {
		maxNotices = 20
	}
	return &Surface{
		emitter:    emitter,
		maxNotices: maxNotices,
	}
}

// ShowLoading displays the loading indicator with a label.
func (s *Surface) ShowLoading(label string) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.emit("feedback:loading", map[string]any{"visible": true, "label": label})
}

// HideLoading removes the loading indicator.
func (s *Surface) HideLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	s.emit("feedback:loading", map[string]any{"visible": false})
}

// Loading reports whether the loading indicator is visible.
func (s *Surface) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Progress updates the progress indicator for the named stage.
func (s *Surface) Progress(stage, message string) {
	s.emit("feedback:progress", ProgressUpdate{Stage: stage, Message: message})
}

// Notify shows one dismissible notification and returns its ID.
func (s *Surface) Notify(level Level, message string) string {
	notice := Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.notices = append(s.notices, notice)
	if len(s.notices) > s.maxNotices {
		trim := len(s.notices) - s.maxNotices
		s.notices = append([]Notice(nil), s.notices[trim:]...)
	}
	s.mu.Unlock()

	s.emit("feedback:notice", notice)
	return notice.ID
}

// Dismiss removes one notification. Unknown IDs are ignored.
func (s *Surface) Dismiss(id string) {
	s.mu.Lock()
	kept := s.notices[:0]
	for _, notice := range s.notices {
		if notice.ID != id {
			kept = append(kept, notice)
		}
	}
	s.notices = kept
	s.mu.Unlock()

	s.emit("feedback:dismiss", id)
}

// Active returns a snapshot of undismissed notifications.
func (s *Surface) Active() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notice, len(s.notices))
	copy(out, s.notices)
	return out
}

// emit forwards an event when an emitter is configured.
func (s *Surface) emit(name string, data ...any) {
	if s.emitter != nil {
		s.emitter.Emit(name, data...)
	}
}
