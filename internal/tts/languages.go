package tts

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Languages are the narration languages the backends are known to handle.
var Languages = map[string]string{
	"en":    "English",
	"zh-TW": "Traditional Chinese",
	"zh-CN": "Simplified Chinese",
	"ja":    "Japanese",
	"ko":    "Korean",
	"fr":    "French",
	"de":    "German",
	"es":    "Spanish",
	"it":    "Italian",
	"ru":    "Russian",
	"pt":    "Portuguese",
	"th":    "Thai",
	"vi":    "Vietnamese",
}

// EdgeVoices lists edge-tts voices per language; the first is the default.
var EdgeVoices = map[string][]string{
	"zh-TW": {"zh-TW-HsiaoChenNeural", "zh-TW-YunJheNeural", "zh-TW-HsiaoYuNeural"},
	"zh-CN": {"zh-CN-XiaoxiaoNeural", "zh-CN-YunxiNeural", "zh-CN-YunyangNeural", "zh-CN-XiaohanNeural", "zh-CN-XiaomoNeural"},
	"en":    {"en-US-AriaNeural", "en-US-GuyNeural", "en-GB-SoniaNeural"},
	"ja":    {"ja-JP-NanamiNeural", "ja-JP-KeitaNeural"},
	"ko":    {"ko-KR-SoonBokNeural", "ko-KR-InJoonNeural"},
	"fr":    {"fr-FR-DeniseNeural", "fr-FR-HenriNeural"},
	"de":    {"de-DE-KatjaNeural", "de-DE-ConradNeural"},
	"es":    {"es-ES-AlvaroNeural", "es-ES-ElviraNeural"},
	"it":    {"it-IT-ElsaNeural", "it-IT-DiegoNeural"},
	"ru":    {"ru-RU-SvetlanaNeural", "ru-RU-DmitryNeural"},
	"pt":    {"pt-BR-FranciscaNeural", "pt-BR-AntonioNeural"},
	"th":    {"th-TH-PremwadeeNeural", "th-TH-NiwatNeural"},
	"vi":    {"vi-VN-HoaiMyNeural", "vi-VN-NamMinhNeural"},
}

const fallbackVoice = "en-US-AriaNeural"

// DefaultVoice returns the first edge voice of lang, or the English default.
func DefaultVoice(lang string) string {
	if voices := EdgeVoices[lang]; len(voices) > 0 {
		return voices[0]
	}
	return fallbackVoice
}

// LanguageCodes returns the known codes sorted.
func LanguageCodes() []string {
	codes := make([]string, 0, len(Languages))
	for code := range Languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsKnownLanguage reports whether code is in the table.
func IsKnownLanguage(code string) bool {
	_, ok := Languages[code]
	return ok
}

// LanguageName names code in English. Codes outside the table are resolved
// through CLDR; the bool is false when code is not a valid BCP 47 tag.
func LanguageName(code string) (string, bool) {
	if name, ok := Languages[code]; ok {
		return name, true
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	return display.English.Tags().Name(tag), true
}

// NativeName names code in its own language, e.g. "français" for fr.
func NativeName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return display.Self.Name(tag)
}
