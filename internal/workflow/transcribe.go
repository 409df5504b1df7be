package workflow

import (
	"context"

	"speechflow/internal/domain"
	"speechflow/internal/feedback"
	"speechflow/internal/session"
)

// TranscribeOrchestrator drives the transcription stage.
type TranscribeOrchestrator struct {
	deps  Deps
	guard guard
}

// NewTranscribeOrchestrator creates the orchestrator over shared workflow
// collaborators.
func NewTranscribeOrchestrator(deps Deps) *TranscribeOrchestrator {
	return &TranscribeOrchestrator{deps: deps}
}

// Running reports whether a transcription is in flight.
func (o *TranscribeOrchestrator) Running() bool {
	return o.guard.running()
}

// Begin validates the selected media, invokes remote transcription, and on
// success advances the workflow to the editable transcript. A second call
// while one is in flight is rejected with a user-visible notice, not
// queued.
func (o *TranscribeOrchestrator) Begin(ctx context.Context) error {
	state := o.deps.State

	if o.guard.running() {
		o.deps.Feedback.Notify(feedback.LevelWarning, "Transcription is already in progress")
		return ErrOperationInProgress
	}

	if err := o.validate(); err != nil {
		o.deps.Feedback.Notify(feedback.LevelError, err.Error())
		return err
	}

	if !o.guard.tryAcquire() {
		o.deps.Feedback.Notify(feedback.LevelWarning, "Transcription is already in progress")
		return ErrOperationInProgress
	}
	defer o.guard.release()

	o.deps.Lock.Acquire("Transcribing audio…")
	defer o.deps.Lock.Release()

	o.deps.Feedback.ShowLoading("Transcribing audio…")
	defer o.deps.Feedback.HideLoading()
	o.deps.Feedback.Progress("transcribe", "Uploading and transcribing audio")

	prevStage := state.Stage
	state.Stage = domain.StageTranscribing

	result, err := o.deps.Remote.Transcribe(ctx, mediaPayload(state.SourceMedia), state.SourceLanguage)
	if err != nil {
		state.Stage = prevStage
		o.deps.logger().Error("transcription failed", "error", err)
		o.deps.Feedback.Notify(feedback.LevelError, "Transcription failed: "+failureMessage(err))
		// re-offers the retry control on the upload section
		o.deps.UI.Render(state)
		return err
	}

	state.Transcript = result.Text
	if result.DetectedLanguage != "" {
		state.SourceLanguage = result.DetectedLanguage
	}
	o.deps.persist(session.FieldTranscription, state.Transcript)
	o.deps.persist(session.FieldSourceLanguage, state.SourceLanguage)

	if state.CanAdvance(domain.StageTranscriptReady) {
		state.Stage = domain.StageTranscriptReady
	}

	o.deps.UI.Render(state)
	o.deps.attachPlayer(SourcePlayerID, state.SourceMedia)
	return nil
}

// validate rejects a begin call before any guard or lock is touched.
func (o *TranscribeOrchestrator) validate() error {
	state := o.deps.State
	if state.SourceMedia == nil || len(state.SourceMedia.Data) == 0 {
		return validationError("Select an audio file before transcribing")
	}
	if state.Stage != domain.StageUpload {
		return validationError("Transcription can only start from the upload step")
	}
	return nil
}
