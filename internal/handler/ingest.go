package handler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"studyforge/internal/artifact"
	"studyforge/internal/blob"
	"studyforge/internal/config"
	"studyforge/internal/extract"
	"studyforge/internal/logging"
	"studyforge/internal/services"
	"studyforge/internal/store"
	"studyforge/internal/textutil"
)

// IngestPayload is the frozen ingest job payload.
type IngestPayload struct {
	SourceType   string `json:"source_type"`
	SourceRef    string `json:"source_ref"`
	OriginalName string `json:"original_name"`
}

// Extractor returns raw text for a source.
type Extractor interface {
	Extract(ctx context.Context, sourceType artifact.Type, ref string) (extract.Result, error)
}

// CoreGenerator synthesizes a knowledge core from cleaned text.
type CoreGenerator interface {
	Generate(ctx context.Context, text, title string) (*artifact.KnowledgeCore, error)
}

// IngestOptions configures IngestHandler.
type IngestOptions struct {
	// MinTextChars is the minimum normalized extraction length.
	MinTextChars int
	// Archive, when set, receives a copy of local source files.
	Archive blob.Store
	Logger  *slog.Logger
}

// IngestHandler turns a source into a source artifact plus its knowledge
// core. It never emits edges: the core is a DAG root.
type IngestHandler struct {
	extractor Extractor
	generator CoreGenerator
	minChars  int
	archive   blob.Store
	logger    *slog.Logger
}

func NewIngestHandler(extractor Extractor, generator CoreGenerator, opts IngestOptions) *IngestHandler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	minChars := opts.MinTextChars
	if minChars <= 0 {
		minChars = 50
	}
	return &IngestHandler{
		extractor: extractor,
		generator: generator,
		minChars:  minChars,
		archive:   opts.Archive,
		logger:    logging.NewComponentLogger(logger, "ingest"),
	}
}

func (h *IngestHandler) Run(ctx context.Context, job *store.Job) (*store.Bundle, error) {
	var payload IngestPayload
	if err := decodePayload(job, &payload); err != nil {
		return nil, err
	}
	sourceType := artifact.Type(strings.ToLower(strings.TrimSpace(payload.SourceType)))
	if !sourceType.IsSource() {
		return nil, services.Wrap(services.ErrValidation, "ingest", "validate payload",
			fmt.Sprintf("source_type %q is not one of %v", payload.SourceType, artifact.SourceTypes()), nil)
	}
	ref := strings.TrimSpace(payload.SourceRef)
	if ref == "" {
		return nil, services.Wrap(services.ErrValidation, "ingest", "validate payload", "source_ref is required", nil)
	}
	logger := logging.WithContext(ctx, h.logger)

	res, err := h.extractor.Extract(ctx, sourceType, ref)
	if err != nil {
		return nil, passThrough(services.ErrExternalTool, "ingest", "extract", string(sourceType), err)
	}
	text := textutil.Normalize(res.Text)
	chars := utf8.RuneCountInString(text)
	if chars < h.minChars {
		return nil, services.Wrap(services.ErrValidation, "ingest", "extract",
			fmt.Sprintf("extracted text has %d characters, need at least %d", chars, h.minChars), nil)
	}
	logger.Info("source extracted",
		logging.String("source_type", string(sourceType)),
		logging.Int("chars", chars),
	)

	title := strings.TrimSpace(res.Metadata["title"])
	if title == "" {
		name := payload.OriginalName
		if strings.TrimSpace(name) == "" {
			name = ref
		}
		title = textutil.DeriveTitle(name)
	}

	core, err := h.generator.Generate(ctx, text, title)
	if err != nil {
		return nil, passThrough(services.ErrExternalTool, "ingest", "knowledge core", "generation failed", err)
	}
	if core == nil {
		return nil, services.Wrap(services.ErrExternalTool, "ingest", "knowledge core", "generator returned nothing", nil)
	}
	if err := core.Validate(); err != nil {
		return nil, services.Wrap(services.ErrSemantic, "ingest", "validate knowledge core", "knowledge core rejected", err)
	}

	sourceID, coreID := newID(), newID()
	metadata := res.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	var renderings []artifact.Rendering
	if archived := h.archiveSource(ctx, logger, job.ProjectID, sourceID, sourceType, ref); archived != nil {
		metadata["archive_path"] = archived.StoragePath
		renderings = append(renderings, *archived)
	}

	source := artifact.Artifact{
		ID:        sourceID,
		ProjectID: job.ProjectID,
		Type:      sourceType,
		Content: artifact.Content{
			Kind:         artifact.KindSource,
			SourceType:   sourceType,
			SourceRef:    ref,
			OriginalName: payload.OriginalName,
			Text:         text,
			CharCount:    chars,
			Metadata:     metadata,
		},
	}
	coreArtifact := artifact.Artifact{
		ID:        coreID,
		ProjectID: job.ProjectID,
		Type:      artifact.TypeKnowledgeCore,
		Content:   artifact.Content{Kind: artifact.KindCore, Core: core},
	}
	result, err := encodeResult(map[string]any{
		"source_artifact_id": sourceID,
		"knowledge_core_id":  coreID,
		"title":              core.Title,
		"char_count":         chars,
		"concepts":           len(core.Concepts),
	})
	if err != nil {
		return nil, err
	}
	return &store.Bundle{
		JobID:     job.ID,
		ProjectID: job.ProjectID,
		Artifacts:  []artifact.Artifact{source, coreArtifact},
		Renderings: renderings,
		Result:     result,
	}, nil
}

// archiveSource copies a local source file to the blob store under a key
// derived from the source artifact id and returns it as a rendering of that
// artifact, so the copy is recorded only when the bundle commits. Failures
// are logged and do not fail the ingest.
func (h *IngestHandler) archiveSource(ctx context.Context, logger *slog.Logger, projectID, sourceID string, sourceType artifact.Type, ref string) *artifact.Rendering {
	if h.archive == nil || sourceType == artifact.TypeYouTube {
		return nil
	}
	path, err := config.ExpandPath(ref)
	if err != nil {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		logging.WarnWithContext(logger, "source archive skipped", "source_archive_failed", logging.Error(err))
		return nil
	}
	defer f.Close()
	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(ref)), ".")
	if ext == "" {
		ext = string(sourceType)
	}
	key := projectID + "/sources/" + sourceID + "." + ext
	if err := h.archive.Put(ctx, key, f, size, ""); err != nil {
		logging.WarnWithContext(logger, "source archive failed", "source_archive_failed",
			logging.String("key", key),
			logging.Error(err),
		)
		return nil
	}
	return &artifact.Rendering{
		ProjectID:   projectID,
		ArtifactID:  sourceID,
		Format:      ext,
		StoragePath: key,
	}
}

func (h *IngestHandler) HealthCheck(context.Context) Health {
	switch {
	case h.extractor == nil:
		return Unhealthy("ingest", "extractor not configured")
	case h.generator == nil:
		return Unhealthy("ingest", "knowledge core generator not configured")
	}
	return Healthy("ingest")
}
