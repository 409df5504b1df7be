package domain

// SupportedLanguages maps ISO 639-1 codes to English language names, the
// vocabulary the translation service expects.
var SupportedLanguages = map[string]string{
	"en": "English",
	"he": "Hebrew",
	"ru": "Russian",
	"es": "Spanish",
	"ar": "Arabic",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"hi": "Hindi",
	"pl": "Polish",
	"uk": "Ukrainian",
	"tr": "Turkish",
	"nl": "Dutch",
	"sv": "Swedish",
}

// LanguageName resolves a language code to its display name. Unknown codes
// and already-spelled-out names pass through unchanged.
func LanguageName(code string) string {
	if name, ok := SupportedLanguages[code]; ok {
		return name
	}
	return code
}
