package uistate

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"speechflow/internal/domain"
)

// Section identifies which pipeline surface is visible.
type Section string

const (
	SectionUpload     Section = "upload"
	SectionTranscript Section = "transcript"
	SectionResults    Section = "results"
)

// CharCountTone classifies the transcript length against its bound.
type CharCountTone string

const (
	ToneNormal CharCountTone = "normal"
	ToneWarn   CharCountTone = "warn"
	ToneOver   CharCountTone = "over"
)

// View is the derived display state for the visible section.
type View struct {
	Section            Section       `json:"section"`
	Title              string        `json:"title"`
	SourceLanguageName string        `json:"sourceLanguageName"`
	TargetLanguageName string        `json:"targetLanguageName"`
	Transcript         string        `json:"transcript"`
	Translation        string        `json:"translation"`
	CharCount          int           `json:"charCount"`
	CharCountLimit     int           `json:"charCountLimit"`
	CharCountTone      CharCountTone `json:"charCountTone"`
	SourceAudioURL     string        `json:"sourceAudioUrl,omitempty"`
	ResultAudioURL     string        `json:"resultAudioUrl,omitempty"`
}

// Emitter pushes UI events to the webview.
type Emitter interface {
	Emit(name string, data ...any)
}

// Component maps workflow state to the visible section and its derived
// display strings. It performs no network calls and never mutates state.
type Component struct {
	emitter Emitter
}

// NewComponent creates the UI-state component.
func NewComponent(emitter Emitter) *Component {
	return &Component{emitter: emitter}
}

// Render computes the view for the given workflow state and pushes it to
// the frontend.
func (c *Component) Render(state *domain.WorkflowState) View {
	view := buildView(state)
	c.emit(view)
	return view
}

// Reset restores the initial section visibility and clears transient editor
// content. It deliberately leaves the session store untouched; clearing
// saved state is a separate explicit user action.
func (c *Component) Reset() View {
	view := buildView(domain.NewWorkflowState())
	c.emit(view)
	return view
}

// emit forwards the view when an emitter is configured.
func (c *Component) emit(view View) {
	if c.emitter != nil {
		c.emitter.Emit("ui:view", view)
	}
}

// buildView is the pure mapping from workflow state to display state.
func buildView(state *domain.WorkflowState) View {
	view := View{
		Section:            sectionFor(state.Stage),
		SourceLanguageName: DisplayLanguage(state.SourceLanguage),
		TargetLanguageName: DisplayLanguage(state.TargetLanguage),
		Transcript:         state.Transcript,
		Translation:        state.Translation,
		CharCount:          len([]rune(state.Transcript)),
		CharCountLimit:     domain.TranscriptMaxLen,
	}
	view.CharCountTone = toneFor(view.CharCount, view.CharCountLimit)

	if state.SourceMedia != nil {
		view.Title = state.SourceMedia.Name
		view.SourceAudioURL = state.SourceMedia.HandleID
	}
	if view.Section == SectionResults && view.SourceLanguageName != "" && view.TargetLanguageName != "" {
		view.Title = fmt.Sprintf("%s → %s", view.SourceLanguageName, view.TargetLanguageName)
	}
	if state.SynthesizedAudio != nil {
		view.ResultAudioURL = state.SynthesizedAudio.HandleID
	}

	return view
}

// sectionFor maps a pipeline stage to the section presenting it. In-flight
// stages keep their originating section visible.
func sectionFor(stage domain.Stage) Section {
	switch stage {
	case domain.StageTranscriptReady, domain.StageProcessing:
		return SectionTranscript
	case domain.StageResultsReady:
		return SectionResults
	default:
		return SectionUpload
	}
}

// toneFor classifies the character count against warn and overflow
// thresholds.
func toneFor(count, limit int) CharCountTone {
	switch {
	case count > limit:
		return ToneOver
	case count*10 > limit*9:
		return ToneWarn
	default:
		return ToneNormal
	}
}

// DisplayLanguage returns the capitalized display name for a language code
// or name.
func DisplayLanguage(code string) string {
	if code == "" {
		return ""
	}
	// A cases.Caser is stateful and must not be shared between goroutines.
	return cases.Title(language.English).String(domain.LanguageName(code))
}
