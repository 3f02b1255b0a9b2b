package textutil_test

import (
	"testing"

	"studyforge/internal/textutil"
)

func TestNormalize(t *testing.T) {
	in := "Hello  world\x00\r\n\r\n\r\n\r\nNext ﬁne  "
	if got, want := textutil.Normalize(in), "Hello world\n\nNext fine"; got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
}

func TestCleanTranscript(t *testing.T) {
	in := "[00:01:02] SPEAKER_1: Um, so photosynthesis is, uh, the process [music] by which plants make food!!!"
	want := "so photosynthesis is, the process by which plants make food!"
	if got := textutil.CleanTranscript(in); got != want {
		t.Fatalf("CleanTranscript = %q, want %q", got, want)
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"  Photo-Synthesis!! ": "photo synthesis",
		"PHOTOSYNTHESIS":       "photosynthesis",
		"Cell   Wall":          "cell wall",
	}
	for in, want := range cases {
		if got := textutil.NormalizeKey(in); got != want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveTitle(t *testing.T) {
	cases := map[string]string{
		"lecture_03-intro.md":           "Lecture 03 Intro",
		"/tmp/uploads/cell.biology.pdf": "Cell Biology",
		"":                              "Untitled",
	}
	for in, want := range cases {
		if got := textutil.DeriveTitle(in); got != want {
			t.Fatalf("DeriveTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := textutil.Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate short = %q", got)
	}
	if got := textutil.Truncate("abcdefghij klm", 12); got != "abcdefghij" {
		t.Fatalf("Truncate at word boundary = %q", got)
	}
	if got := textutil.Truncate("abcdefghijklmnop", 5); got != "abcde" {
		t.Fatalf("Truncate hard cut = %q", got)
	}
}

func TestSanitize(t *testing.T) {
	if got := textutil.SanitizeToken("Job 42/A"); got != "job_42_a" {
		t.Fatalf("SanitizeToken = %q", got)
	}
	if got := textutil.SanitizeToken("lecture.mp3"); got != "lecture_mp3" {
		t.Fatalf("SanitizeToken file = %q", got)
	}
	if got := textutil.SanitizeToken("  "); got != "unknown" {
		t.Fatalf("SanitizeToken empty = %q", got)
	}
}
