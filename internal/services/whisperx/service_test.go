package whisperx_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"studyforge/internal/services/whisperx"
)

func TestTranscribeRunsFFmpegThenWhisperX(t *testing.T) {
	workDir := t.TempDir()
	var calls []string
	svc := whisperx.NewService(whisperx.Config{Language: "EN"}, "")
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		calls = append(calls, name)
		if name == whisperx.UVXCommand {
			if !slices.Contains(args, "--language") || !slices.Contains(args, "en") {
				t.Errorf("expected language flag in %v", args)
			}
			payload := `{"segments":[{"text":" hello "},{"text":""},{"text":"world"}]}`
			return os.WriteFile(filepath.Join(workDir, "lecture.json"), []byte(payload), 0o644)
		}
		return nil
	})

	text, err := svc.Transcribe(context.Background(), "/media/lecture.mp4", workDir)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected transcript %q", text)
	}
	if len(calls) != 2 || calls[0] != whisperx.FFmpegCommand || calls[1] != whisperx.UVXCommand {
		t.Fatalf("unexpected command order %v", calls)
	}
	if svc.Model() != whisperx.DefaultModel {
		t.Fatalf("expected default model, got %q", svc.Model())
	}
}

func TestTranscribeMissingOutput(t *testing.T) {
	svc := whisperx.NewService(whisperx.Config{}, "ffmpeg")
	svc.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	if _, err := svc.Transcribe(context.Background(), "/media/a.wav", t.TempDir()); err == nil {
		t.Fatal("expected error when transcript json is missing")
	}
	if _, err := svc.Transcribe(context.Background(), "", t.TempDir()); err == nil {
		t.Fatal("expected error for empty source")
	}
}
