package daemonrun

import (
	"context"
	"fmt"
	"log/slog"

	"studyforge/internal/blob"
	"studyforge/internal/config"
	"studyforge/internal/extract"
	"studyforge/internal/generation"
	"studyforge/internal/handler"
	"studyforge/internal/merge"
	"studyforge/internal/render"
	"studyforge/internal/store"
)

// BuildRegistry constructs the ingest and generate handlers with their
// production collaborators. The worker CLI shares it with the daemon.
func BuildRegistry(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*handler.Registry, error) {
	completer, err := generation.NewCompleter(cfg)
	if err != nil {
		return nil, err
	}
	blobs, err := blob.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	ingestOpts := handler.IngestOptions{MinTextChars: cfg.Extract.MinTextChars, Logger: logger}
	if cfg.Extract.ArchiveSources {
		ingestOpts.Archive = blobs
	}
	ingest := handler.NewIngestHandler(
		extract.NewDefaultRegistry(cfg, logger),
		generation.NewKnowledgeCoreGenerator(completer, logger),
		ingestOpts,
	)
	generate := handler.NewGenerateHandler(
		st,
		generation.NewArtifactGenerator(completer, logger),
		merge.New(completer, merge.OptionsFromConfig(cfg.Merge), logger),
		render.New(blobs, cfg, logger),
		handler.GenerateOptions{Logger: logger},
	)

	registry := handler.NewRegistry()
	registry.Register(store.JobIngest, ingest)
	registry.Register(store.JobGenerate, generate)
	return registry, nil
}
