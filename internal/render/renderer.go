package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"studyforge/internal/artifact"
	"studyforge/internal/blob"
	"studyforge/internal/config"
	"studyforge/internal/logging"
	"studyforge/internal/services"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

var contentTypes = map[string]string{
	artifact.FormatPDF:  "application/pdf",
	artifact.FormatPPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// Renderer renders exam and slides models and uploads the result.
type Renderer struct {
	store   blob.Store
	pandoc  string
	workDir string
	runner  CommandRunner
	logger  *slog.Logger
}

// New builds a Renderer that uploads into store.
func New(store blob.Store, cfg *config.Config, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{
		store:   store,
		pandoc:  cfg.Render.PandocBinary,
		workDir: cfg.Paths.WorkDir,
		logger:  logging.NewComponentLogger(logger, "render"),
	}
}

// WithCommandRunner replaces the pandoc executor, for tests.
func (r *Renderer) WithCommandRunner(runner CommandRunner) {
	r.runner = runner
}

// Render produces and uploads the binary for model. Types without a binary
// format return nil.
func (r *Renderer) Render(ctx context.Context, model artifact.Generated, projectID, artifactID string) (*artifact.Rendering, error) {
	format := artifact.BinaryFormat(model.ArtifactType())
	if format == "" {
		return nil, nil
	}
	var (
		data []byte
		err  error
	)
	switch m := model.(type) {
	case *artifact.Exam:
		data = ExamPDF(m)
	case *artifact.Slides:
		data, err = r.slidesPPTX(ctx, m, artifactID)
	default:
		return nil, fmt.Errorf("render: unexpected model %T for %s", model, format)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "render", format, "renderer produced no output", nil)
	}

	key := artifact.ObjectKey(projectID, artifactID, format)
	if err := r.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentTypes[format]); err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "upload", key, err)
	}
	r.logger.Info("binary uploaded",
		logging.String(logging.FieldArtifactID, artifactID),
		logging.String("format", format),
		logging.String("location", r.store.Location(key)),
		logging.Int("bytes", len(data)),
	)
	return &artifact.Rendering{
		ProjectID:   projectID,
		ArtifactID:  artifactID,
		Format:      format,
		StoragePath: key,
	}, nil
}

func (r *Renderer) slidesPPTX(ctx context.Context, slides *artifact.Slides, artifactID string) ([]byte, error) {
	root := r.workDir
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(root, "render-"+artifactID+"-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "deck.md")
	output := filepath.Join(dir, "deck.pptx")
	if err := os.WriteFile(input, []byte(SlidesMarkdown(slides)), 0o644); err != nil {
		return nil, err
	}
	binary := strings.TrimSpace(r.pandoc)
	if binary == "" {
		binary = "pandoc"
	}
	if err := r.run(ctx, binary, "--from", "markdown", "--to", "pptx", "--slide-level", "2", "-o", output, input); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "pandoc", "slides conversion failed", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "pandoc", "no pptx written", err)
	}
	return data, nil
}

func (r *Renderer) run(ctx context.Context, name string, args ...string) error {
	if r.runner != nil {
		return r.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
