package speech

// SupportedLanguages is the intersection of what the transcription and
// synthesis providers both handle.
var SupportedLanguages = map[string]string{
	"en": "english",
	"es": "spanish",
	"fr": "french",
	"zh": "chinese",
	"ja": "japanese",
}

// SupportedTranslationPairs lists the ordered (source, target) pairs the
// translation provider has verified models for.
var SupportedTranslationPairs = [][2]string{
	{"zh", "en"}, {"en", "zh"},
	{"en", "fr"}, {"fr", "en"},
	{"en", "ja"}, {"ja", "en"},
	{"en", "es"}, {"es", "en"},
}

// voiceLanguages maps a voice identifier to the synthesis language. JP is a
// legacy alias kept for older clients.
var voiceLanguages = map[string]string{
	"EN-US": "en",
	"EN":    "en",
	"ES":    "es",
	"FR":    "fr",
	"ZH":    "zh",
	"JA":    "ja",
	"JP":    "ja",
}

// DefaultVoiceLanguage backs the permissive fallback for unknown voice ids.
const DefaultVoiceLanguage = "en"

type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AvailableVoices returns the static synthesis voice catalog.
func AvailableVoices() []Voice {
	return []Voice{
		{ID: "EN-US", Name: "English (American)"},
		{ID: "EN", Name: "English (Default)"},
		{ID: "ES", Name: "Spanish"},
		{ID: "FR", Name: "French"},
		{ID: "ZH", Name: "Chinese"},
		{ID: "JA", Name: "Japanese"},
	}
}

// LanguagePairs groups the supported translation pairs by source language.
func LanguagePairs() map[string][]string {
	pairs := make(map[string][]string)
	for _, p := range SupportedTranslationPairs {
		pairs[p[0]] = append(pairs[p[0]], p[1])
	}
	return pairs
}

func IsSupportedLanguage(code string) bool {
	_, ok := SupportedLanguages[code]
	return ok
}

func IsSupportedPair(from, to string) bool {
	for _, p := range SupportedTranslationPairs {
		if p[0] == from && p[1] == to {
			return true
		}
	}
	return false
}

// VoiceLanguage resolves a voice id to its synthesis language. Unknown ids
// fall back to English: voice selection is a UX nicety, not
// correctness-critical input.
func VoiceLanguage(voiceID string) string {
	if lang, ok := voiceLanguages[voiceID]; ok {
		return lang
	}
	return DefaultVoiceLanguage
}
