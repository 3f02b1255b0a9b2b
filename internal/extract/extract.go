package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"studyforge/internal/artifact"
	"studyforge/internal/config"
	"studyforge/internal/logging"
	"studyforge/internal/services"
	"studyforge/internal/services/whisperx"
)

// Result is the raw text of a source plus descriptive metadata such as a
// frontmatter title or slide count.
type Result struct {
	Text     string
	Metadata map[string]string
}

// Extractor reads one kind of source.
type Extractor interface {
	Extract(ctx context.Context, ref string) (Result, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, ref string) (Result, error)

func (f ExtractorFunc) Extract(ctx context.Context, ref string) (Result, error) { return f(ctx, ref) }

// CommandRunner executes name and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Registry dispatches by source type.
type Registry struct {
	extractors map[artifact.Type]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[artifact.Type]Extractor)}
}

// NewDefaultRegistry wires every supported source type from configuration.
func NewDefaultRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "extract")
	transcriber := whisperx.NewService(whisperx.Config{
		Model:       cfg.Extract.WhisperXModel,
		CUDAEnabled: cfg.Extract.WhisperXCUDA,
		Language:    cfg.Extract.Language,
	}, cfg.Extract.FFmpegBinary)
	media := &MediaExtractor{Transcriber: transcriber, WorkDir: cfg.Paths.WorkDir, Logger: logger}

	r := NewRegistry()
	r.Register(artifact.TypeMD, &MarkdownExtractor{})
	r.Register(artifact.TypePDF, &PDFExtractor{Binary: cfg.Extract.PDFToTextBinary})
	r.Register(artifact.TypePPTX, &PPTXExtractor{})
	r.Register(artifact.TypeAudio, media)
	r.Register(artifact.TypeVideo, media)
	r.Register(artifact.TypeYouTube, &YouTubeExtractor{
		Binary: cfg.Extract.YTDLPBinary,
		Media:  media,
		Logger: logger,
	})
	return r
}

// Register installs e for t, replacing any previous extractor.
func (r *Registry) Register(t artifact.Type, e Extractor) {
	r.extractors[t] = e
}

// Supports reports whether t has an extractor.
func (r *Registry) Supports(t artifact.Type) bool {
	_, ok := r.extractors[t]
	return ok
}

// Extract runs the extractor registered for sourceType.
func (r *Registry) Extract(ctx context.Context, sourceType artifact.Type, ref string) (Result, error) {
	e, ok := r.extractors[sourceType]
	if !ok {
		return Result{}, services.Wrap(services.ErrValidation, "extract", string(sourceType), "unsupported source type", nil)
	}
	res, err := e.Extract(ctx, ref)
	if err != nil {
		return Result{}, wrapExtractError(sourceType, err)
	}
	if res.Metadata == nil {
		res.Metadata = map[string]string{}
	}
	return res, nil
}

func wrapExtractError(sourceType artifact.Type, err error) error {
	var svc *services.ServiceError
	if errors.As(err, &svc) {
		return err
	}
	if errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrNotFound, "extract", string(sourceType), "source not found", err)
	}
	return services.Wrap(services.ErrExternalTool, "extract", string(sourceType), "extraction failed", err)
}

// localFile verifies ref names a readable regular file.
func localFile(ref string) (string, error) {
	path := strings.TrimSpace(ref)
	if path == "" {
		return "", services.Wrap(services.ErrValidation, "extract", "resolve source", "source_ref is empty", nil)
	}
	path, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "extract", "resolve source", path+" is a directory", nil)
	}
	return path, nil
}
