package workflow

import (
	"context"
	"strings"

	"speechflow/internal/domain"
	"speechflow/internal/feedback"
	"speechflow/internal/media"
	"speechflow/internal/session"
)

// ProcessOrchestrator drives the translation and speech synthesis stage. The two
// remote calls are sequential: synthesis input is the translation output.
type ProcessOrchestrator struct {
	deps  Deps
	guard guard
}

// NewProcessOrchestrator creates the orchestrator over shared workflow
// collaborators.
func NewProcessOrchestrator(deps Deps) *ProcessOrchestrator {
	return &ProcessOrchestrator{deps: deps}
}

// Running reports whether processing is in flight.
func (o *ProcessOrchestrator) Running() bool {
	return o.guard.running()
}

// Begin validates the edited transcript and language selection, translates,
// then synthesizes speech from the translation. A successful translation is
// persisted even when synthesis fails afterwards, so a retry does not
// re-translate.
func (o *ProcessOrchestrator) Begin(ctx context.Context) error {
	state := o.deps.State

	if o.guard.running() {
		o.deps.Feedback.Notify(feedback.LevelWarning, "Processing is already in progress")
		return ErrOperationInProgress
	}

	if err := o.validate(); err != nil {
		o.deps.Feedback.Notify(feedback.LevelError, err.Error())
		return err
	}

	if !o.guard.tryAcquire() {
		o.deps.Feedback.Notify(feedback.LevelWarning, "Processing is already in progress")
		return ErrOperationInProgress
	}
	defer o.guard.release()

	o.deps.Lock.Acquire("Translating and generating speech…")
	defer o.deps.Lock.Release()

	o.deps.Feedback.ShowLoading("Translating and generating speech…")
	defer o.deps.Feedback.HideLoading()

	prevStage := state.Stage
	state.Stage = domain.StageProcessing

	// A translation kept from an earlier run is reused as long as the
	// transcript and language selection are unchanged, so a retry after a
	// synthesis failure does not translate again.
	translated := state.Translation
	if !state.HasCurrentTranslation() {
		o.deps.Feedback.Progress("translate", "Translating transcript")
		result, err := o.deps.Remote.Translate(
			ctx,
			state.Transcript,
			domain.LanguageName(state.SourceLanguage),
			domain.LanguageName(state.TargetLanguage),
		)
		if err != nil {
			state.Stage = prevStage
			o.deps.logger().Error("translation failed", "error", err)
			o.deps.Feedback.Notify(feedback.LevelError, "Processing failed: "+failureMessage(err))
			return err
		}
		translated = result

		// Partial progress is kept: the translation survives a later
		// synthesis failure.
		state.Translation = translated
		state.TranslatedFrom = domain.TranslationInput{
			Transcript:     state.Transcript,
			SourceLanguage: state.SourceLanguage,
			TargetLanguage: state.TargetLanguage,
		}
		o.deps.persist(session.FieldTranslation, state.Translation)
		o.deps.persist(session.FieldTargetLanguage, state.TargetLanguage)
	}

	o.deps.Feedback.Progress("synthesize", "Generating speech")
	audio, err := o.deps.Remote.SynthesizeSpeech(
		ctx,
		translated,
		state.Voice.Voice,
		state.Voice.QualityModel,
		state.Voice.Instructions,
	)
	if err != nil {
		state.Stage = prevStage
		o.deps.logger().Error("speech synthesis failed", "error", err)
		o.deps.Feedback.Notify(feedback.LevelError, "Processing failed: "+failureMessage(err))
		return err
	}

	// Regenerated output replaces the previous one; its handle is revoked
	// before the new allocation so repeated runs cannot accumulate handles.
	if prior := state.SynthesizedAudio; prior != nil && o.deps.Media != nil {
		o.deps.Media.Release(strings.TrimPrefix(prior.HandleID, media.HandlePrefix))
	}

	resource := &domain.MediaResource{
		Name:     "synthesized-speech.mp3",
		MimeType: "audio/mpeg",
		Data:     audio,
	}
	if o.deps.Media != nil {
		handle := o.deps.Media.Allocate(audio, resource.MimeType)
		resource.HandleID = handle.URL
	}
	state.SynthesizedAudio = resource

	if state.CanAdvance(domain.StageResultsReady) {
		state.Stage = domain.StageResultsReady
	}

	o.deps.UI.Render(state)
	o.deps.attachPlayer(ResultPlayerID, state.SynthesizedAudio)
	return nil
}

// validate rejects a begin call before any guard or lock is touched.
func (o *ProcessOrchestrator) validate() error {
	state := o.deps.State

	if state.Transcript == "" {
		return validationError("The transcript is empty")
	}
	if len([]rune(state.Transcript)) > domain.TranscriptMaxLen {
		return validationError("The transcript exceeds the 50,000 character limit")
	}
	if state.SourceLanguage == "" || state.TargetLanguage == "" {
		return validationError("Select both a source and a target language")
	}
	if domain.LanguageName(state.SourceLanguage) == domain.LanguageName(state.TargetLanguage) {
		return validationError("Source and target languages must differ")
	}
	if state.Voice.Voice == "" || state.Voice.QualityModel == "" {
		return validationError("Select a voice and a quality model")
	}
	if state.Stage != domain.StageTranscriptReady && state.Stage != domain.StageResultsReady {
		return validationError("Finish transcription before translating")
	}
	return nil
}
