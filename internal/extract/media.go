package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"studyforge/internal/logging"
	"studyforge/internal/textutil"
)

// Transcriber turns a media file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, source, workDir string) (string, error)
}

// MediaExtractor transcribes audio and video files.
type MediaExtractor struct {
	Transcriber Transcriber
	WorkDir     string
	Logger      *slog.Logger
}

func (m *MediaExtractor) Extract(ctx context.Context, ref string) (Result, error) {
	path, err := localFile(ref)
	if err != nil {
		return Result{}, err
	}
	return m.transcribe(ctx, path)
}

func (m *MediaExtractor) transcribe(ctx context.Context, path string) (Result, error) {
	workDir, err := os.MkdirTemp(m.workRoot(), "transcribe-"+textutil.SanitizeToken(filepath.Base(path))+"-")
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(workDir)

	started := time.Now()
	raw, err := m.Transcriber.Transcribe(ctx, path, workDir)
	if err != nil {
		return Result{}, err
	}
	if m.Logger != nil {
		m.Logger.Info("transcription complete",
			logging.String("source", filepath.Base(path)),
			logging.Duration("elapsed", time.Since(started)),
			logging.Int("chars", len(raw)),
		)
	}
	return Result{
		Text:     textutil.CleanTranscript(raw),
		Metadata: map[string]string{"transcribed": "true"},
	}, nil
}

func (m *MediaExtractor) workRoot() string {
	if m.WorkDir != "" {
		if err := os.MkdirAll(m.WorkDir, 0o755); err == nil {
			return m.WorkDir
		}
	}
	return os.TempDir()
}
