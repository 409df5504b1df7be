package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"speechflow/internal/domain"
	"speechflow/internal/feedback"
	"speechflow/internal/media"
	"speechflow/internal/remote"
	"speechflow/internal/uilock"
	"speechflow/internal/uistate"
)

// fakeRemote is a controllable remote collaborator.
type fakeRemote struct {
	mu              sync.Mutex
	transcribeCalls int
	translateCalls  int
	synthesizeCalls int

	transcribeResult remote.Transcription
	transcribeErr    error
	translateResult  string
	translateErr     error
	synthesizeResult []byte
	synthesizeErr    error

	// blockTranscribe/blockTranslate hold the call open until closed.
	blockTranscribe chan struct{}
	blockTranslate  chan struct{}
	started         chan struct{}
}

func (f *fakeRemote) Transcribe(ctx context.Context, m remote.Media, hint string) (remote.Transcription, error) {
	f.mu.Lock()
	f.transcribeCalls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.blockTranscribe != nil {
		<-f.blockTranscribe
	}
	return f.transcribeResult, f.transcribeErr
}

func (f *fakeRemote) Translate(ctx context.Context, text, src, dst string) (string, error) {
	f.mu.Lock()
	f.translateCalls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.blockTranslate != nil {
		<-f.blockTranslate
	}
	return f.translateResult, f.translateErr
}

func (f *fakeRemote) SynthesizeSpeech(ctx context.Context, text, voice, model, instructions string) ([]byte, error) {
	f.mu.Lock()
	f.synthesizeCalls++
	f.mu.Unlock()
	return f.synthesizeResult, f.synthesizeErr
}

func (f *fakeRemote) CheckHealth(ctx context.Context) (remote.Health, error) {
	return remote.Health{Status: "healthy", ServiceConfigured: true}, nil
}

func (f *fakeRemote) calls() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transcribeCalls, f.translateCalls, f.synthesizeCalls
}

// mapPersister records saved fields in memory.
type mapPersister struct {
	mu     sync.Mutex
	fields map[string]string
}

func newMapPersister() *mapPersister {
	return &mapPersister{fields: make(map[string]string)}
}

func (p *mapPersister) SaveField(key, value string) {
	p.mu.Lock()
	p.fields[key] = value
	p.mu.Unlock()
}

func (p *mapPersister) get(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fields[key]
}

// fakeAttacher records playback attachments.
type fakeAttacher struct {
	mu       sync.Mutex
	attached []string
}

func (a *fakeAttacher) Attach(playerID string, resource *domain.MediaResource) {
	a.mu.Lock()
	a.attached = append(a.attached, playerID)
	a.mu.Unlock()
}

// lockRecorder counts lock and unlock broadcasts.
type lockRecorder struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	views   []uistate.View
}

func (r *lockRecorder) Emit(name string, data ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch name {
	case "ui:lock":
		states, ok := data[0].([]uilock.ControlState)
		if ok && len(states) > 0 && states[0].Disabled {
			r.locks++
		} else {
			r.unlocks++
		}
	case "ui:view":
		if view, ok := data[0].(uistate.View); ok {
			r.views = append(r.views, view)
		}
	}
}

func (r *lockRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locks, r.unlocks
}

func (r *lockRecorder) lastView(t *testing.T) uistate.View {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		t.Fatal("no view rendered")
	}
	return r.views[len(r.views)-1]
}

// testEnv bundles the collaborators for one orchestrator test.
type testEnv struct {
	state    *domain.WorkflowState
	remote   *fakeRemote
	recorder *lockRecorder
	fb       *feedback.Surface
	persist  *mapPersister
	attacher *fakeAttacher
	deps     Deps
}

// newTestEnv builds a fully wired in-memory environment.
func newTestEnv(rc *fakeRemote) *testEnv {
	recorder := &lockRecorder{}
	env := &testEnv{
		state:    domain.NewWorkflowState(),
		remote:   rc,
		recorder: recorder,
		fb:       feedback.NewSurface(nil, 10),
		persist:  newMapPersister(),
		attacher: &fakeAttacher{},
	}
	env.deps = Deps{
		State:    env.state,
		Remote:   rc,
		Lock:     uilock.New(recorder),
		Feedback: env.fb,
		Session:  env.persist,
		UI:       uistate.NewComponent(recorder),
		Media:    media.NewRegistry(),
		Players:  env.attacher,
	}
	return env
}

// withSourceMedia positions the workflow at the upload stage with a file.
func (e *testEnv) withSourceMedia() *testEnv {
	e.state.SourceMedia = &domain.MediaResource{
		Name:     "clip.mp3",
		MimeType: "audio/mpeg",
		Data:     []byte("audio"),
	}
	return e
}

// withEditedTranscript positions the workflow at the transcript stage ready
// for processing.
func (e *testEnv) withEditedTranscript() *testEnv {
	e.state.Stage = domain.StageTranscriptReady
	e.state.Transcript = "Hello"
	e.state.SourceLanguage = "Hebrew"
	e.state.TargetLanguage = "English"
	e.state.Voice = domain.VoiceParameters{Voice: "onyx", QualityModel: "gpt-4o-mini-tts"}
	return e
}

// errorNotices filters active notices down to errors.
func errorNotices(fb *feedback.Surface) []feedback.Notice {
	var out []feedback.Notice
	for _, n := range fb.Active() {
		if n.Level == feedback.LevelError {
			out = append(out, n)
		}
	}
	return out
}

// TestTranscribeHappyPath verifies the full success path: state mutation,
// persistence, stage advance, section hand-off, and player attachment.
func TestTranscribeHappyPath(t *testing.T) {
	env := newTestEnv(&fakeRemote{
		transcribeResult: remote.Transcription{Text: "Hello world", DetectedLanguage: "English"},
	}).withSourceMedia()
	o := NewTranscribeOrchestrator(env.deps)

	if err := o.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if env.state.Transcript != "Hello world" {
		t.Fatalf("transcript = %q", env.state.Transcript)
	}
	if env.state.Stage != domain.StageTranscriptReady {
		t.Fatalf("stage = %s, want transcript_ready", env.state.Stage)
	}
	if got := env.persist.get("transcription"); got != "Hello world" {
		t.Fatalf("persisted transcription = %q", got)
	}

	view := env.recorder.lastView(t)
	if view.Section != uistate.SectionTranscript || view.Transcript != "Hello world" {
		t.Fatalf("view = %+v, want transcript editor pre-filled", view)
	}
	if len(env.attacher.attached) != 1 || env.attacher.attached[0] != SourcePlayerID {
		t.Fatalf("attached players = %v", env.attacher.attached)
	}
	if o.Running() {
		t.Fatal("guard must be idle after Begin returns")
	}
}

// TestTranscribeValidationBeforeLock checks a rejected request freezes
// nothing.
func TestTranscribeValidationBeforeLock(t *testing.T) {
	env := newTestEnv(&fakeRemote{})
	o := NewTranscribeOrchestrator(env.deps)

	err := o.Begin(context.Background())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}

	locks, unlocks := env.recorder.counts()
	if locks != 0 || unlocks != 0 {
		t.Fatalf("lock events = %d/%d, want none for rejected input", locks, unlocks)
	}
	if calls, _, _ := env.remote.calls(); calls != 0 {
		t.Fatalf("transcribe calls = %d, want 0", calls)
	}
}

// TestTranscribeGuardExclusivity verifies two back-to-back Begin calls
// invoke the collaborator exactly once; the second is dropped with a
// notice.
func TestTranscribeGuardExclusivity(t *testing.T) {
	rc := &fakeRemote{
		transcribeResult: remote.Transcription{Text: "ok"},
		blockTranscribe:  make(chan struct{}),
		started:          make(chan struct{}, 1),
	}
	env := newTestEnv(rc).withSourceMedia()
	o := NewTranscribeOrchestrator(env.deps)

	firstDone := make(chan error, 1)
	go func() { firstDone <- o.Begin(context.Background()) }()
	<-rc.started

	if err := o.Begin(context.Background()); !errors.Is(err, ErrOperationInProgress) {
		t.Fatalf("second Begin error = %v, want %v", err, ErrOperationInProgress)
	}

	found := false
	for _, n := range env.fb.Active() {
		if strings.Contains(n.Message, "already in progress") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an already-in-progress notice")
	}

	close(rc.blockTranscribe)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Begin error = %v", err)
	}

	if calls, _, _ := rc.calls(); calls != 1 {
		t.Fatalf("transcribe calls = %d, want exactly 1", calls)
	}
}

// TestTranscribeLockSymmetry verifies unlock is observed exactly once after
// lock on both the success and the failure path.
func TestTranscribeLockSymmetry(t *testing.T) {
	env := newTestEnv(&fakeRemote{
		transcribeResult: remote.Transcription{Text: "ok"},
	}).withSourceMedia()
	o := NewTranscribeOrchestrator(env.deps)

	if err := o.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if locks, unlocks := env.recorder.counts(); locks != 1 || unlocks != 1 {
		t.Fatalf("success path lock/unlock = %d/%d, want 1/1", locks, unlocks)
	}

	failing := newTestEnv(&fakeRemote{
		transcribeErr: &remote.Error{Stage: "transcribe", Message: "network error"},
	}).withSourceMedia()
	fo := NewTranscribeOrchestrator(failing.deps)

	if err := fo.Begin(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if locks, unlocks := failing.recorder.counts(); locks != 1 || unlocks != 1 {
		t.Fatalf("failure path lock/unlock = %d/%d, want 1/1", locks, unlocks)
	}
	if failing.deps.Lock.Locked() {
		t.Fatal("lock must never remain held after Begin returns")
	}
}

// TestTranscribeFailureKeepsStage checks no partial advance and a
// stage-prefixed notice.
func TestTranscribeFailureKeepsStage(t *testing.T) {
	env := newTestEnv(&fakeRemote{
		transcribeErr: &remote.Error{Stage: "transcribe", Message: "service unavailable"},
	}).withSourceMedia()
	o := NewTranscribeOrchestrator(env.deps)

	if err := o.Begin(context.Background()); err == nil {
		t.Fatal("expected failure")
	}

	if env.state.Stage != domain.StageUpload {
		t.Fatalf("stage = %s, want unchanged upload", env.state.Stage)
	}
	notices := errorNotices(env.fb)
	if len(notices) != 1 || notices[0].Message != "Transcription failed: service unavailable" {
		t.Fatalf("notices = %+v", notices)
	}
	if view := env.recorder.lastView(t); view.Section != uistate.SectionUpload {
		t.Fatalf("section = %s, want upload with retry re-offered", view.Section)
	}
}

// TestProcessHappyPath verifies translate then synthesize, audio handle
// allocation, and the results hand-off.
func TestProcessHappyPath(t *testing.T) {
	env := newTestEnv(&fakeRemote{
		translateResult:  "Hello",
		synthesizeResult: []byte("mp3-bytes"),
	}).withEditedTranscript()
	o := NewProcessOrchestrator(env.deps)

	if err := o.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if env.state.Stage != domain.StageResultsReady {
		t.Fatalf("stage = %s, want results_ready", env.state.Stage)
	}
	if env.state.SynthesizedAudio == nil || env.state.SynthesizedAudio.HandleID == "" {
		t.Fatalf("synthesized audio = %+v, want allocated handle", env.state.SynthesizedAudio)
	}
	if env.deps.Media.Len() != 1 {
		t.Fatalf("live handles = %d, want 1", env.deps.Media.Len())
	}
	if len(env.attacher.attached) != 1 || env.attacher.attached[0] != ResultPlayerID {
		t.Fatalf("attached players = %v", env.attacher.attached)
	}
	if view := env.recorder.lastView(t); view.Section != uistate.SectionResults {
		t.Fatalf("section = %s, want results", view.Section)
	}
}

// TestProcessPartialFailurePreservesTranslation verifies the spec's
// partial-failure scenario: translation kept and persisted, stage not
// advanced, one prefixed notice, guard idle.
func TestProcessPartialFailurePreservesTranslation(t *testing.T) {
	env := newTestEnv(&fakeRemote{
		translateResult: "שלום",
		synthesizeErr:   &remote.Error{Stage: "synthesize", Message: "TTS service down"},
	}).withEditedTranscript()
	o := NewProcessOrchestrator(env.deps)

	if err := o.Begin(context.Background()); err == nil {
		t.Fatal("expected synthesis failure")
	}

	if env.state.Translation != "שלום" {
		t.Fatalf("translation = %q, want preserved", env.state.Translation)
	}
	if got := env.persist.get("translation"); got != "שלום" {
		t.Fatalf("persisted translation = %q", got)
	}
	if env.state.Stage == domain.StageResultsReady {
		t.Fatal("stage must not advance to results_ready")
	}
	if env.state.Stage != domain.StageTranscriptReady {
		t.Fatalf("stage = %s, want transcript_ready", env.state.Stage)
	}

	notices := errorNotices(env.fb)
	if len(notices) != 1 || notices[0].Message != "Processing failed: TTS service down" {
		t.Fatalf("notices = %+v", notices)
	}
	if o.Running() {
		t.Fatal("guard must be idle after failure")
	}
}

// TestProcessRetryReusesTranslation verifies a retry after a synthesis
// failure does not translate the unchanged transcript again.
func TestProcessRetryReusesTranslation(t *testing.T) {
	rc := &fakeRemote{
		translateResult: "שלום",
		synthesizeErr:   &remote.Error{Stage: "synthesize", Message: "TTS service down"},
	}
	env := newTestEnv(rc).withEditedTranscript()
	o := NewProcessOrchestrator(env.deps)

	if err := o.Begin(context.Background()); err == nil {
		t.Fatal("expected synthesis failure")
	}

	rc.synthesizeErr = nil
	rc.synthesizeResult = []byte("mp3-bytes")
	if err := o.Begin(context.Background()); err != nil {
		t.Fatalf("retry Begin() error = %v", err)
	}

	if _, translates, synthesizes := rc.calls(); translates != 1 || synthesizes != 2 {
		t.Fatalf("translate/synthesize calls = %d/%d, want 1/2", translates, synthesizes)
	}
	if env.state.Stage != domain.StageResultsReady {
		t.Fatalf("stage = %s, want results_ready", env.state.Stage)
	}
}

// TestProcessRetranslatesEditedTranscript verifies a kept translation is
// not reused once the transcript changed underneath it.
func TestProcessRetranslatesEditedTranscript(t *testing.T) {
	rc := &fakeRemote{
		translateResult: "Bonjour",
		synthesizeErr:   &remote.Error{Stage: "synthesize", Message: "TTS service down"},
	}
	env := newTestEnv(rc).withEditedTranscript()
	o := NewProcessOrchestrator(env.deps)

	if err := o.Begin(context.Background()); err == nil {
		t.Fatal("expected synthesis failure")
	}

	env.state.Transcript = "Hello again"
	rc.synthesizeErr = nil
	rc.synthesizeResult = []byte("audio")
	if err := o.Begin(context.Background()); err != nil {
		t.Fatalf("retry Begin() error = %v", err)
	}

	if _, translates, _ := rc.calls(); translates != 2 {
		t.Fatalf("translate calls = %d, want 2 after edit", translates)
	}
}

// TestProcessRegeneratesFromResults verifies speech can be generated again
// from the results step and the previous audio handle is revoked.
func TestProcessRegeneratesFromResults(t *testing.T) {
	rc := &fakeRemote{
		translateResult:  "Hello",
		synthesizeResult: []byte("take-one"),
	}
	env := newTestEnv(rc).withEditedTranscript()
	o := NewProcessOrchestrator(env.deps)

	if err := o.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	rc.synthesizeResult = []byte("take-two")
	if err := o.Begin(context.Background()); err != nil {
		t.Fatalf("second Begin() error = %v", err)
	}

	if _, translates, synthesizes := rc.calls(); translates != 1 || synthesizes != 2 {
		t.Fatalf("translate/synthesize calls = %d/%d, want 1/2", translates, synthesizes)
	}
	if env.deps.Media.Len() != 1 {
		t.Fatalf("live handles = %d, want 1 after regeneration", env.deps.Media.Len())
	}
	if string(env.state.SynthesizedAudio.Data) != "take-two" {
		t.Fatalf("audio = %q, want regenerated output", env.state.SynthesizedAudio.Data)
	}
	if env.state.Stage != domain.StageResultsReady {
		t.Fatalf("stage = %s, want results_ready", env.state.Stage)
	}
}

// TestProcessDuplicateSubmit verifies the translate collaborator runs
// exactly once for two overlapping Begin calls.
func TestProcessDuplicateSubmit(t *testing.T) {
	rc := &fakeRemote{
		translateResult:  "Bonjour",
		synthesizeResult: []byte("audio"),
		blockTranslate:   make(chan struct{}),
		started:          make(chan struct{}, 1),
	}
	env := newTestEnv(rc).withEditedTranscript()
	o := NewProcessOrchestrator(env.deps)

	firstDone := make(chan error, 1)
	go func() { firstDone <- o.Begin(context.Background()) }()
	<-rc.started

	if err := o.Begin(context.Background()); !errors.Is(err, ErrOperationInProgress) {
		t.Fatalf("second Begin error = %v, want %v", err, ErrOperationInProgress)
	}

	time.AfterFunc(100*time.Millisecond, func() { close(rc.blockTranslate) })
	if err := <-firstDone; err != nil {
		t.Fatalf("first Begin error = %v", err)
	}

	if _, translates, _ := rc.calls(); translates != 1 {
		t.Fatalf("translate calls = %d, want exactly 1", translates)
	}
}

// TestProcessValidatesLanguageSelection checks distinct, non-empty
// languages are required before anything is touched.
func TestProcessValidatesLanguageSelection(t *testing.T) {
	env := newTestEnv(&fakeRemote{}).withEditedTranscript()
	env.state.TargetLanguage = env.state.SourceLanguage

	err := NewProcessOrchestrator(env.deps).Begin(context.Background())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if locks, _ := env.recorder.counts(); locks != 0 {
		t.Fatal("validation failure must not freeze the UI")
	}
}

// TestProcessRejectsOverlongTranscript checks the transcript length bound.
func TestProcessRejectsOverlongTranscript(t *testing.T) {
	env := newTestEnv(&fakeRemote{}).withEditedTranscript()
	env.state.Transcript = strings.Repeat("a", domain.TranscriptMaxLen+1)

	err := NewProcessOrchestrator(env.deps).Begin(context.Background())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

// TestProcessRejectsOutOfOrderStage checks the defensive stage
// verification: synthesis cannot start before transcription completed.
func TestProcessRejectsOutOfOrderStage(t *testing.T) {
	env := newTestEnv(&fakeRemote{}).withEditedTranscript()
	env.state.Stage = domain.StageUpload

	err := NewProcessOrchestrator(env.deps).Begin(context.Background())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}
