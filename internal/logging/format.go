package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	consoleTimeLayout = "2006-01-02 15:04:05"

	// maxConsoleValue caps detail values on the console. Extracted text and
	// raw model replies can run to megabytes; the JSON file keeps them whole.
	maxConsoleValue = 240
)

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleTimeLayout)
}

// headerString renders a value for the header line without quoting.
func headerString(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return formatValue(v)
}

// formatValue renders a detail value, quoting strings that would be
// ambiguous on a "key: value" line.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return roundDuration(v.Duration()).String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteText(err.Error())
		}
		return quoteText(fmt.Sprint(v.Any()))
	default:
		return quoteText(v.String())
	}
}

func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(time.Microsecond)
	default:
		return d
	}
}

func quoteText(s string) string {
	s = clip(s)
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func clip(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= maxConsoleValue {
		return s
	}
	var b strings.Builder
	count := 0
	for _, r := range s {
		if count == maxConsoleValue {
			break
		}
		b.WriteRune(r)
		count++
	}
	fmt.Fprintf(&b, "... (+%d chars)", n-maxConsoleValue)
	return b.String()
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r < ' ' || r == '"' {
			return true
		}
	}
	return false
}
