package playback

import (
	"math"
	"sync"
)

// State is the playback lifecycle position of one engine instance.
type State string

const (
	StateIdle    State = "idle"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
)

// skipStepSeconds is the keyboard skip increment.
const skipStepSeconds = 10.0

// Element is the underlying playable resource the engine drives, bridged to
// an audio element in the webview.
type Element interface {
	Play()
	Pause()
	Stop()
	SeekTo(seconds float64)
	SetRate(rate float64)
}

// EventSource delivers element and keyboard events. Subscribe returns a
// cancel function releasing that one subscription.
type EventSource interface {
	Subscribe(name string, handler func(data ...any)) (cancel func())
}

// Emitter pushes UI events to the webview.
type Emitter interface {
	Emit(name string, data ...any)
}

// Engine is a per-audio-element playback state machine. It owns every event
// subscription it registers; Close releases them as one teardown so
// repeated create/destroy cycles cannot leak handlers.
type Engine struct {
	mu       sync.Mutex
	id       string
	element  Element
	emitter  Emitter
	state    State
	duration float64
	position float64
	rate     float64
	progress float64
	subs     []func()
	closed   bool
}

// New creates an idle engine for one audio element and registers its event
// subscriptions, including the shared keyboard listener.
func New(id string, element Element, source EventSource, emitter Emitter) *Engine {
	e := &Engine{
		id:      id,
		element: element,
		emitter: emitter,
		state:   StateIdle,
		rate:    1.0,
	}

	if source != nil {
		e.subs = append(e.subs,
			source.Subscribe("player:"+id+":metadata", func(data ...any) {
				if d, ok := firstFloat(data); ok {
					e.SetDuration(d)
				}
			}),
			source.Subscribe("player:"+id+":time", func(data ...any) {
				if p, ok := firstFloat(data); ok {
					e.UpdatePosition(p)
				}
			}),
			source.Subscribe("player:"+id+":ended", func(...any) {
				e.HandleEnded()
			}),
			source.Subscribe("ui:keydown", func(data ...any) {
				key, inTextEntry := keyEvent(data)
				e.HandleKey(key, inTextEntry)
			}),
		)
	}

	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetDuration records the media duration and moves an idle engine to ready.
func (e *Engine) SetDuration(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !isUsableDuration(seconds) {
		return
	}
	e.duration = seconds
	if e.state == StateIdle {
		e.state = StateReady
	}
}

// TogglePlayback switches between playing and paused. It is a no-op before
// metadata has loaded.
func (e *Engine) TogglePlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StatePlaying:
		e.state = StatePaused
		e.element.Pause()
	case StateReady, StatePaused, StateEnded:
		e.state = StatePlaying
		e.element.Play()
	}
}

// Seek moves to the given fraction of the duration, clamped to [0, 1].
// Valid from ready onward.
func (e *Engine) Seek(fraction float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle || !isUsableDuration(e.duration) {
		return
	}
	fraction = clamp(fraction, 0, 1)
	e.position = fraction * e.duration
	e.element.SeekTo(e.position)
	e.refreshProgress()
}

// SetRate changes playback speed without pausing.
func (e *Engine) SetRate(multiplier float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if multiplier <= 0 || math.IsInf(multiplier, 0) || math.IsNaN(multiplier) {
		return
	}
	e.rate = multiplier
	e.element.SetRate(multiplier)
}

// Rate returns the current playback rate multiplier.
func (e *Engine) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

// Skip jumps by the given signed number of seconds, clamping the resulting
// position to [0, duration].
func (e *Engine) Skip(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle || !isUsableDuration(e.duration) {
		return
	}
	e.position = clamp(e.position+seconds, 0, e.duration)
	e.element.SeekTo(e.position)
	e.refreshProgress()
}

// UpdatePosition records a position report from the element and refreshes
// the displayed progress.
func (e *Engine) UpdatePosition(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return
	}
	e.position = seconds
	e.refreshProgress()
}

// HandleEnded normalizes the end of playback: position resets to zero and
// the play affordance is restored, matching the paused presentation.
func (e *Engine) HandleEnded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = StateEnded
	e.position = 0
	e.progress = 0
	e.emitProgress()
}

// Position returns the current logical position in seconds.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Progress returns the displayed progress percentage in [0, 100].
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// ShowsPlayAffordance reports whether the public control presents a play
// button. After ended this equals the paused presentation.
func (e *Engine) ShowsPlayAffordance() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != StatePlaying
}

// HandleKey routes keyboard shortcuts. Shortcuts are suppressed while focus
// is inside a text-entry control.
func (e *Engine) HandleKey(key string, inTextEntry bool) {
	if inTextEntry {
		return
	}

	switch key {
	case " ", "Space":
		e.TogglePlayback()
	case "ArrowLeft":
		e.Skip(-skipStepSeconds)
	case "ArrowRight":
		e.Skip(skipStepSeconds)
	}
}

// Close stops the element and releases every subscription this instance
// registered in one teardown. Safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.state = StateIdle
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()

	for _, cancel := range subs {
		cancel()
	}
	e.element.Stop()
}

// refreshProgress recomputes displayed progress, suppressing the update on
// non-finite or zero duration so NaN never propagates. Callers hold the
// lock.
func (e *Engine) refreshProgress() {
	if !isUsableDuration(e.duration) {
		return
	}
	e.progress = clamp(e.position/e.duration*100, 0, 100)
	e.emitProgress()
}

// emitProgress pushes the progress value to the UI. Callers hold the lock.
func (e *Engine) emitProgress() {
	if e.emitter != nil {
		e.emitter.Emit("player:"+e.id+":progress", e.progress)
	}
}

// isUsableDuration reports whether a duration can produce a finite ratio.
func isUsableDuration(d float64) bool {
	return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// firstFloat extracts a numeric payload from a runtime event.
func firstFloat(data []any) (float64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	switch v := data[0].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// keyEvent extracts key name and text-entry focus from a keydown payload.
func keyEvent(data []any) (string, bool) {
	key := ""
	inTextEntry := false
	if len(data) > 0 {
		if s, ok := data[0].(string); ok {
			key = s
		}
	}
	if len(data) > 1 {
		if b, ok := data[1].(bool); ok {
			inTextEntry = b
		}
	}
	return key, inTextEntry
}
