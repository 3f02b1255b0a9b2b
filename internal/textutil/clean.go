package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	timestampPattern = regexp.MustCompile(`\[?\(?\b\d{1,2}:\d{2}(?::\d{2})?(?:[.,]\d{1,3})?\b\)?\]?`)
	speakerPattern   = regexp.MustCompile(`(?m)^\s*(?:SPEAKER[_ ]?\d+|Speaker \d+|[A-Z][A-Za-z]{0,20}(?: [A-Z][A-Za-z]{0,20})?)\s*:\s+`)
	stageNotePattern = regexp.MustCompile(`(?i)\[(?:music|applause|laughter|inaudible|silence|noise|crosstalk)[^\]]*\]|\((?:music|applause|laughter|inaudible|silence|noise|crosstalk)[^)]*\)`)
	fillerPattern    = regexp.MustCompile(`(?i)\b(?:um+|uh+|erm+|hmm+|you know|i mean)\b[,.]?\s*`)
	repeatedPunct    = regexp.MustCompile(`[!?,]{2,}|\.{4,}`)
	spaceBeforePunct = regexp.MustCompile(`\s+([.,;:!?])`)
	horizontalSpace  = regexp.MustCompile(`[ \t\f\v]+`)
	excessBlankLines = regexp.MustCompile(`\n{3,}`)
	keyPunctuation   = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	titleClean       = regexp.MustCompile(`[_\-.]+`)
)

// Normalize applies NFKC, drops control characters other than newlines and
// tabs, and collapses runs of horizontal whitespace and blank lines.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case unicode.IsControl(r), r == '\ufeff', r == '\u200b':
			return -1
		}
		return r
	}, text)
	text = horizontalSpace.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// CleanTranscript removes timestamps, speaker labels, stage notes and
// verbal fillers from speech-to-text output, then normalizes it.
func CleanTranscript(text string) string {
	text = timestampPattern.ReplaceAllString(text, " ")
	text = speakerPattern.ReplaceAllString(text, "")
	text = stageNotePattern.ReplaceAllString(text, " ")
	text = fillerPattern.ReplaceAllString(text, "")
	text = repeatedPunct.ReplaceAllStringFunc(text, func(run string) string { return run[:1] })
	text = Normalize(text)
	return spaceBeforePunct.ReplaceAllString(text, "$1")
}

// NormalizeKey folds s into a comparison key: case-folded, NFKC, with
// punctuation and whitespace runs collapsed to single spaces.
func NormalizeKey(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))
	s = keyPunctuation.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// DeriveTitle turns a file name such as "lecture_03-intro.md" into
// "Lecture 03 Intro". Empty input yields "Untitled".
func DeriveTitle(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	name = strings.Join(strings.Fields(titleClean.ReplaceAllString(name, " ")), " ")
	if name == "" {
		return "Untitled"
	}
	return cases.Title(language.English, cases.NoLower).String(name)
}

// Truncate shortens s to at most limit runes, cutting at the last word
// boundary when one exists in the final fifth.
func Truncate(s string, limit int) string {
	r := []rune(strings.TrimSpace(s))
	if limit <= 0 || len(r) <= limit {
		return string(r)
	}
	cut := r[:limit]
	if i := lastSpace(cut); i > limit*4/5 {
		cut = cut[:i]
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace)
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if unicode.IsSpace(r[i]) {
			return i
		}
	}
	return -1
}

// SanitizeToken lowercases value and replaces anything outside letters,
// digits, dash and underscore so it can name a scratch directory.
// Returns "unknown" for input with nothing usable.
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_':
			return r
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return unicode.ToLower(r)
		default:
			return '_'
		}
	}, strings.TrimSpace(value))
	if token = strings.Trim(token, "_-"); token == "" {
		return "unknown"
	}
	return token
}
