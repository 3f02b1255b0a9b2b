package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// transcribable lists the languages WhisperX ships alignment models for.
var transcribable = []string{
	"ar", "ca", "cs", "da", "de", "el", "en", "es", "fa", "fi", "fr", "he", "hi",
	"hu", "it", "ja", "ko", "nl", "no", "pl", "pt", "ru", "sv", "tr", "uk", "vi", "zh",
}

// byName maps lowercase English names ("german") to codes.
var byName = func() map[string]string {
	namer := display.English.Languages()
	out := make(map[string]string, len(transcribable))
	for _, code := range transcribable {
		out[strings.ToLower(namer.Name(xlang.MustParse(code)))] = code
	}
	return out
}()

// ISO2 resolves a BCP 47 tag ("pt-BR"), an ISO 639-2 code ("deu"), or an
// English language name ("Spanish") to an ISO 639-1 code.
func ISO2(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", false
	}
	if code, ok := byName[v]; ok {
		return code, true
	}
	tag, err := xlang.Parse(v)
	if err != nil {
		return "", false
	}
	base, confidence := tag.Base()
	if confidence == xlang.No {
		return "", false
	}
	code := base.String()
	if len(code) != 2 {
		return "", false
	}
	return code, true
}

// Supported reports whether code has a WhisperX alignment model.
func Supported(code string) bool {
	for _, c := range transcribable {
		if c == code {
			return true
		}
	}
	return false
}

// DisplayName returns the English name for code, or the code uppercased
// when it is not recognized.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Auto-detect"
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(code)
}
