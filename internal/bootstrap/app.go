package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"speechflow/internal/config"
	"speechflow/internal/domain"
	"speechflow/internal/feedback"
	"speechflow/internal/health"
	"speechflow/internal/logging"
	"speechflow/internal/media"
	"speechflow/internal/remote"
	"speechflow/internal/session"
	"speechflow/internal/uilock"
	"speechflow/internal/uistate"
	"speechflow/internal/workflow"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var audioDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Audio files",
		Pattern:     "*.mp3;*.wav;*.m4a;*.ogg;*.flac;*.aac;*.webm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// maxUploadBytes bounds the selected audio payload.
const maxUploadBytes = 25 << 20

// App wires configuration, workflow orchestration, playback, persistence,
// and UI runtime callbacks.
type App struct {
	Config   config.Config
	Health   domain.HealthReport
	State    *domain.WorkflowState
	Session  *session.Store
	Remote   remote.Client
	Lock     *uilock.Lock
	Feedback *feedback.Surface
	UI       *uistate.Component
	Media    *media.Registry

	transcriber *workflow.TranscribeOrchestrator
	processor   *workflow.ProcessOrchestrator
	players     *playerManager
	checker     *health.Checker
	bridge      *runtimeBridge
	logger      *slog.Logger
	assets      fs.FS
	instance    *flock.Flock
}

// New builds the application with persisted configuration and session
// state.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	cfg, err := config.NewTOMLStore(config.DefaultPath()).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	instance := flock.New(filepath.Join(cfg.DataDir, "app.lock"))
	locked, err := instance.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance is already running")
	}

	store, err := session.Open(filepath.Join(cfg.DataDir, "session.db"), logger)
	if err != nil {
		_ = instance.Unlock()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	client := remote.NewHTTPClient(cfg.BackendURL, cfg.RequestTimeout())
	app := newApp(cfg, client, store, logger)
	app.assets = assets
	app.instance = instance
	app.restoreSession()
	return app, nil
}

// newApp assembles components over the provided collaborators. Tests use
// this to inject fakes.
func newApp(cfg config.Config, client remote.Client, store *session.Store, logger *slog.Logger) *App {
	bridge := &runtimeBridge{}
	state := domain.NewWorkflowState()
	registry := media.NewRegistry()
	fb := feedback.NewSurface(bridge, 20)
	ui := uistate.NewComponent(bridge)
	lock := uilock.New(bridge)
	players := newPlayerManager(bridge, bridge)

	deps := workflow.Deps{
		State:    state,
		Remote:   client,
		Lock:     lock,
		Feedback: fb,
		Session:  store,
		UI:       ui,
		Media:    registry,
		Players:  players,
		Logger:   logger,
	}

	return &App{
		Config:      cfg,
		State:       state,
		Session:     store,
		Remote:      client,
		Lock:        lock,
		Feedback:    fb,
		UI:          ui,
		Media:       registry,
		transcriber: workflow.NewTranscribeOrchestrator(deps),
		processor:   workflow.NewProcessOrchestrator(deps),
		players:     players,
		checker:     health.NewChecker(client),
		bridge:      bridge,
		logger:      logger,
	}
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{
		Middleware: a.Media.Middleware,
	}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "SpeechFlow",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores the runtime context, renders the restored view, and runs
// the one-shot backend health check.
func (a *App) Startup(ctx context.Context) {
	a.bridge.setContext(ctx)
	a.UI.Render(a.State)

	a.Health = a.checker.Run(ctx, healthNotifier{feedback: a.Feedback})
}

// Shutdown releases playback engines, media handles, the session store,
// and the instance lock.
func (a *App) Shutdown(ctx context.Context) {
	a.players.CloseAll()
	a.Media.ReleaseAll()
	if err := a.Session.Close(); err != nil {
		a.logger.Warn("close session store", "error", err)
	}
	if a.instance != nil {
		_ = a.instance.Unlock()
	}
	a.bridge.setContext(nil)
}

// healthNotifier adapts the feedback surface to the health checker.
type healthNotifier struct {
	feedback *feedback.Surface
}

// Warn shows one dismissible warning notice.
func (n healthNotifier) Warn(message string) {
	n.feedback.Notify(feedback.LevelWarning, message)
}

// GetHealth returns the startup health report.
func (a *App) GetHealth() domain.HealthReport {
	return a.Health
}

// CurrentView returns the derived display state for the frontend.
func (a *App) CurrentView() uistate.View {
	return a.UI.Render(a.State)
}

// SelectAudioFile opens a native file dialog, loads the chosen audio into
// an owned media resource, and attaches the preview player.
func (a *App) SelectAudioFile() (uistate.View, error) {
	ctx := a.bridge.context()
	if ctx == nil {
		return uistate.View{}, fmt.Errorf("runtime context is not initialized")
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select audio file",
		Filters: audioDialogFilter,
	})
	if err != nil {
		return uistate.View{}, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return a.CurrentView(), nil
	}

	return a.loadAudioFile(path)
}

// loadAudioFile reads audio from disk into the workflow state.
func (a *App) loadAudioFile(path string) (uistate.View, error) {
	info, err := os.Stat(path)
	if err != nil {
		return uistate.View{}, fmt.Errorf("access audio file: %w", err)
	}
	if info.Size() > maxUploadBytes {
		msg := "The selected file exceeds the 25 MB limit"
		a.Feedback.Notify(feedback.LevelError, msg)
		return uistate.View{}, fmt.Errorf("%s", msg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return uistate.View{}, fmt.Errorf("read audio file: %w", err)
	}

	// A new selection restarts the pipeline at the upload step; results
	// derived from the previous audio are discarded with it.
	a.resetPipeline()

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	handle := a.Media.Allocate(data, mimeType)
	a.State.SourceMedia = &domain.MediaResource{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Data:     data,
		HandleID: handle.URL,
	}

	a.players.Attach(workflow.SourcePlayerID, a.State.SourceMedia)
	return a.UI.Render(a.State), nil
}

// RemoveAudio releases the selected media resource and returns the
// workflow to the upload step.
func (a *App) RemoveAudio() {
	if a.State.SourceMedia == nil {
		return
	}
	a.resetPipeline()
	a.UI.Render(a.State)
}

// resetPipeline returns the workflow to the upload step, releasing the
// owned audio resources and the transcript and translation derived from
// them. The saved session is untouched; clearing it is a separate explicit
// action.
func (a *App) resetPipeline() {
	releaseResource(a.Media, a.State.SourceMedia)
	a.State.SourceMedia = nil
	releaseResource(a.Media, a.State.SynthesizedAudio)
	a.State.SynthesizedAudio = nil
	a.State.Transcript = ""
	a.State.Translation = ""
	a.State.TranslatedFrom = domain.TranslationInput{}
	a.State.Stage = domain.StageUpload
}

// BeginTranscription runs the transcription stage on the selected audio.
func (a *App) BeginTranscription() error {
	return a.transcriber.Begin(context.Background())
}

// BeginProcessing runs the translation and speech synthesis stage.
func (a *App) BeginProcessing() error {
	return a.processor.Begin(context.Background())
}

// UpdateTranscript applies a user edit to the transcript and persists it.
func (a *App) UpdateTranscript(text string) uistate.View {
	if len([]rune(text)) > domain.TranscriptMaxLen {
		text = string([]rune(text)[:domain.TranscriptMaxLen])
	}
	a.State.Transcript = text
	a.Session.SaveField(session.FieldTranscription, text)
	return a.UI.Render(a.State)
}

// SetLanguages records the user's language selection.
func (a *App) SetLanguages(source, target string) uistate.View {
	a.State.SourceLanguage = strings.TrimSpace(source)
	a.State.TargetLanguage = strings.TrimSpace(target)
	a.Session.SaveField(session.FieldSourceLanguage, a.State.SourceLanguage)
	a.Session.SaveField(session.FieldTargetLanguage, a.State.TargetLanguage)
	return a.UI.Render(a.State)
}

// SetVoice records the synthesis voice configuration.
func (a *App) SetVoice(params domain.VoiceParameters) {
	a.State.Voice = params
	a.Session.SaveField(session.FieldVoice, params.Voice)
	a.Session.SaveField(session.FieldQualityModel, params.QualityModel)
}

// SupportedLanguages lists selectable languages for the frontend.
func (a *App) SupportedLanguages() map[string]string {
	return domain.SupportedLanguages
}

// DownloadResult writes the synthesized audio to a user-chosen location.
func (a *App) DownloadResult() error {
	if a.State.SynthesizedAudio == nil {
		return fmt.Errorf("no synthesized audio to save")
	}

	ctx := a.bridge.context()
	if ctx == nil {
		return fmt.Errorf("runtime context is not initialized")
	}

	path, err := wailsruntime.SaveFileDialog(ctx, wailsruntime.SaveDialogOptions{
		Title:           "Save synthesized audio",
		DefaultFilename: a.State.SynthesizedAudio.Name,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		return nil
	}

	return os.WriteFile(path, a.State.SynthesizedAudio.Data, 0o644)
}

// ResetWorkflow returns to the upload step, releasing every owned audio
// resource and playback engine. Saved session fields are kept; clearing
// them is a separate explicit action.
func (a *App) ResetWorkflow() uistate.View {
	a.players.CloseAll()
	releaseResource(a.Media, a.State.SourceMedia)
	releaseResource(a.Media, a.State.SynthesizedAudio)

	*a.State = *domain.NewWorkflowState()
	return a.UI.Reset()
}

// ClearSavedSession removes the durable session record.
func (a *App) ClearSavedSession() {
	a.Session.ClearAll()
}

// DismissNotice removes one notification.
func (a *App) DismissNotice(id string) {
	a.Feedback.Dismiss(id)
}

// PlayerToggle toggles playback for one audio surface.
func (a *App) PlayerToggle(playerID string) {
	if engine := a.players.Get(playerID); engine != nil {
		engine.TogglePlayback()
	}
}

// PlayerSeek seeks one audio surface to a duration fraction.
func (a *App) PlayerSeek(playerID string, fraction float64) {
	if engine := a.players.Get(playerID); engine != nil {
		engine.Seek(fraction)
	}
}

// PlayerRate sets the playback rate for one audio surface.
func (a *App) PlayerRate(playerID string, rate float64) {
	if engine := a.players.Get(playerID); engine != nil {
		engine.SetRate(rate)
	}
}

// PlayerSkip jumps one audio surface by signed seconds.
func (a *App) PlayerSkip(playerID string, seconds float64) {
	if engine := a.players.Get(playerID); engine != nil {
		engine.Skip(seconds)
	}
}

// restoreSession loads non-expired saved fields into the workflow state.
// An expired record is cleared instead of silently resurrecting stale
// in-flight state.
func (a *App) restoreSession() {
	if !a.Session.HasAnyState() {
		return
	}
	if a.Session.Expired() {
		a.logger.Info("saved session expired, clearing", "sessionId", a.Session.SessionID())
		a.Session.ClearAll()
		return
	}

	a.State.Transcript = a.Session.LoadField(session.FieldTranscription, "")
	a.State.SourceLanguage = a.Session.LoadField(session.FieldSourceLanguage, "")
	a.State.Translation = a.Session.LoadField(session.FieldTranslation, "")
	a.State.TargetLanguage = a.Session.LoadField(session.FieldTargetLanguage, "")
	a.State.Voice.Voice = a.Session.LoadField(session.FieldVoice, "")
	a.State.Voice.QualityModel = a.Session.LoadField(session.FieldQualityModel, "")

	// The binary audio is not persisted, so a restored workflow resumes at
	// the editable transcript, never mid-flight.
	if a.State.Transcript != "" {
		a.State.Stage = domain.StageTranscriptReady
	}
	a.logger.Info("session restored", "sessionId", a.Session.SessionID())
}

// releaseResource revokes a media handle and drops its payload.
func releaseResource(registry *media.Registry, resource *domain.MediaResource) {
	if resource == nil {
		return
	}
	registry.Release(strings.TrimPrefix(resource.HandleID, media.HandlePrefix))
	resource.Data = nil
	resource.HandleID = ""
}
