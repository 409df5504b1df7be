package uilock

import "sync"

// Emitter pushes UI events to the webview.
type Emitter interface {
	Emit(name string, data ...any)
}

// Controls is the fixed, total set of interactive controls frozen while a
// stage is in flight. A control missing from this set is a defect.
var Controls = []string{
	"upload-input",
	"transcribe-button",
	"transcript-editor",
	"source-language-select",
	"target-language-select",
	"voice-select",
	"quality-model-select",
	"voice-instructions-input",
	"process-button",
	"download-button",
	"reset-button",
}

// ControlState describes one control's interactive affordance for the
// frontend, including its assistive-technology busy annotation.
type ControlState struct {
	ID        string `json:"id"`
	Disabled  bool   `json:"disabled"`
	Busy      bool   `json:"busy"`
	BusyLabel string `json:"busyLabel,omitempty"`
}

// Lock freezes and unfreezes every interactive control while an operation
// is in flight. Both directions are idempotent: re-locking overwrites the
// label, unlocking while unlocked is a no-op.
type Lock struct {
	mu       sync.Mutex
	emitter  Emitter
	controls []string
	locked   bool
	label    string
}

// New creates an unlocked interaction lock over the fixed control set.
func New(emitter Emitter) *Lock {
	return &Lock{
		emitter:  emitter,
		controls: Controls,
	}
}

// Acquire freezes every control and annotates it busy with the operation
// label for assistive technology.
func (l *Lock) Acquire(operationLabel string) {
	l.mu.Lock()
	l.locked = true
	l.label = operationLabel
	l.mu.Unlock()

	l.broadcast(true, operationLabel)
}

// Release restores every control to its interactive affordance and default
// label.
func (l *Lock) Release() {
	l.mu.Lock()
	wasLocked := l.locked
	l.locked = false
	l.label = ""
	l.mu.Unlock()

	if !wasLocked {
		return
	}
	l.broadcast(false, "")
}

// Locked reports whether the surface is currently frozen.
func (l *Lock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked
}

// Label returns the current operation label, empty when unlocked.
func (l *Lock) Label() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.label
}

// broadcast emits the new state of every control in the fixed set.
func (l *Lock) broadcast(locked bool, label string) {
	if l.emitter == nil {
		return
	}

	states := make([]ControlState, 0, len(l.controls))
	for _, id := range l.controls {
		states = append(states, ControlState{
			ID:        id,
			Disabled:  locked,
			Busy:      locked,
			BusyLabel: label,
		})
	}
	l.emitter.Emit("ui:lock", states)
}
