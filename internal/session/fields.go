package session

// Field keys saved in the session record.
const (
	FieldTranscription  = "transcription"
	FieldSourceLanguage = "sourceLanguage"
	FieldTranslation    = "translation"
	FieldTargetLanguage = "targetLanguage"
	FieldVoice          = "voice"
	FieldQualityModel   = "qualityModel"
)
