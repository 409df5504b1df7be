package domain

// Stage tracks the pipeline phase for the current workflow.
type Stage string

const (
	StageUpload          Stage = "upload"
	StageTranscribing    Stage = "transcribing"
	StageTranscriptReady Stage = "transcript_ready"
	StageProcessing      Stage = "processing"
	StageResultsReady    Stage = "results_ready"
)

// TranscriptMaxLen bounds the editable transcript length in characters.
const TranscriptMaxLen = 50000

// MediaResource is an exclusively-owned binary payload with its ephemeral
// playable handle. The handle is revoked and the bytes dropped on release.
type MediaResource struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"-"`
	HandleID string `json:"handleId"`
}

// VoiceParameters is pass-through speech synthesis configuration.
type VoiceParameters struct {
	Voice        string `json:"voice"`
	QualityModel string `json:"qualityModel"`
	Instructions string `json:"instructions,omitempty"`
}

// TranslationInput records the transcript and language pair a translation
// was produced from.
type TranslationInput struct {
	Transcript     string
	SourceLanguage string
	TargetLanguage string
}

// WorkflowState is the single shared record describing workflow progress.
// It is owned and mutated only by the stage orchestrators; every other
// component reads it.
type WorkflowState struct {
	Stage            Stage            `json:"stage"`
	SourceMedia      *MediaResource   `json:"sourceMedia,omitempty"`
	Transcript       string           `json:"transcript"`
	SourceLanguage   string           `json:"sourceLanguage"`
	Translation      string           `json:"translation"`
	TranslatedFrom   TranslationInput `json:"-"`
	TargetLanguage   string           `json:"targetLanguage"`
	SynthesizedAudio *MediaResource   `json:"synthesizedAudio,omitempty"`
	Voice            VoiceParameters  `json:"voice"`
}

// NewWorkflowState returns a state positioned at the upload stage.
func NewWorkflowState() *WorkflowState {
	return &WorkflowState{Stage: StageUpload}
}

// HasCurrentTranslation reports whether the stored translation was produced
// from the present transcript and language selection.
func (s *WorkflowState) HasCurrentTranslation() bool {
	if s.Translation == "" {
		return false
	}
	want := TranslationInput{
		Transcript:     s.Transcript,
		SourceLanguage: s.SourceLanguage,
		TargetLanguage: s.TargetLanguage,
	}
	return s.TranslatedFrom == want
}

// CanAdvance reports whether moving to the target stage follows the fixed
// pipeline order. Stages advance forward and never skip; the in-flight
// stages (transcribing, processing) sit between the settled ones.
func (s *WorkflowState) CanAdvance(to Stage) bool {
	switch s.Stage {
	case StageUpload:
		return to == StageTranscribing
	case StageTranscribing:
		return to == StageTranscriptReady
	case StageTranscriptReady:
		return to == StageProcessing
	case StageProcessing:
		return to == StageResultsReady
	default:
		return false
	}
}
