package bootstrap

import (
	"context"
	"sync"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"speechflow/internal/domain"
	"speechflow/internal/playback"
	"speechflow/internal/workflow"
)

// runtimeBridge forwards events between Go components and the Wails
// runtime. Before startup (and in tests) the context is nil and events are
// dropped.
type runtimeBridge struct {
	mu  sync.Mutex
	ctx context.Context
}

// setContext stores the Wails runtime context once startup delivers it.
func (b *runtimeBridge) setContext(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()
}

// context returns the runtime context or nil before startup.
func (b *runtimeBridge) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

// Emit pushes one event to the webview.
func (b *runtimeBridge) Emit(name string, data ...any) {
	if ctx := b.context(); ctx != nil {
		wailsruntime.EventsEmit(ctx, name, data...)
	}
}

// Subscribe registers a handler for webview events and returns its cancel.
func (b *runtimeBridge) Subscribe(name string, handler func(data ...any)) func() {
	ctx := b.context()
	if ctx == nil {
		return func() {}
	}
	return wailsruntime.EventsOn(ctx, name, func(optionalData ...interface{}) {
		handler(optionalData...)
	})
}

// bridgedElement drives the webview audio element for one player through
// runtime events.
type bridgedElement struct {
	id      string
	emitter playback.Emitter
}

func (e *bridgedElement) Play() {
	e.emitter.Emit("player:"+e.id+":control", "play")
}

func (e *bridgedElement) Pause() {
	e.emitter.Emit("player:"+e.id+":control", "pause")
}

func (e *bridgedElement) Stop() {
	e.emitter.Emit("player:"+e.id+":control", "stop")
}

func (e *bridgedElement) SeekTo(seconds float64) {
	e.emitter.Emit("player:"+e.id+":control", "seek", seconds)
}

func (e *bridgedElement) SetRate(rate float64) {
	e.emitter.Emit("player:"+e.id+":control", "rate", rate)
}

// playerManager owns the live playback engines, one per audio surface.
// Attaching a player for an occupied slot tears the old engine down first,
// so repeated uploads in one session cannot accumulate handlers.
type playerManager struct {
	mu      sync.Mutex
	emitter playback.Emitter
	source  playback.EventSource
	engines map[string]*playback.Engine
}

// newPlayerManager creates an empty manager.
func newPlayerManager(emitter playback.Emitter, source playback.EventSource) *playerManager {
	return &playerManager{
		emitter: emitter,
		source:  source,
		engines: make(map[string]*playback.Engine),
	}
}

// Attach creates an engine for newly available audio and announces the
// handle to the frontend.
func (m *playerManager) Attach(playerID string, resource *domain.MediaResource) {
	m.mu.Lock()
	if old, ok := m.engines[playerID]; ok {
		old.Close()
	}
	engine := playback.New(playerID, &bridgedElement{id: playerID, emitter: m.emitter}, m.source, m.emitter)
	m.engines[playerID] = engine
	m.mu.Unlock()

	if m.emitter != nil {
		m.emitter.Emit("player:"+playerID+":attach", resource.HandleID)
	}
}

// Get returns the engine for one player slot.
func (m *playerManager) Get(playerID string) *playback.Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engines[playerID]
}

// CloseAll tears down every live engine.
func (m *playerManager) CloseAll() {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]*playback.Engine)
	m.mu.Unlock()

	for _, engine := range engines {
		engine.Close()
	}
}

var _ workflow.PlayerAttacher = (*playerManager)(nil)
