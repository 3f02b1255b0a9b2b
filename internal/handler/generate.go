package handler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"studyforge/internal/artifact"
	"studyforge/internal/logging"
	"studyforge/internal/merge"
	"studyforge/internal/services"
	"studyforge/internal/store"
)

// GeneratePayload is the frozen generate job payload. Either field may name
// the sources; both are combined.
type GeneratePayload struct {
	SourceArtifactID  string   `json:"source_artifact_id,omitempty"`
	SourceArtifactIDs []string `json:"source_artifact_ids,omitempty"`
	TargetType        string   `json:"target_type"`
}

// SourceIDs returns the distinct source ids in payload order.
func (p GeneratePayload) SourceIDs() []string {
	var ids []string
	for _, id := range append([]string{p.SourceArtifactID}, p.SourceArtifactIDs...) {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ArtifactGenerator produces a typed model from a knowledge context.
type ArtifactGenerator interface {
	Generate(ctx context.Context, kc artifact.KnowledgeContext, target artifact.Type) (artifact.Generated, error)
}

// ContextMerger collapses several knowledge contexts into one.
type ContextMerger interface {
	Merge(ctx context.Context, contexts []artifact.KnowledgeContext) (merge.Combined, error)
}

// Renderer produces the binary a generated artifact must carry. A nil
// rendering with a nil error means nothing storable was produced.
type Renderer interface {
	Render(ctx context.Context, model artifact.Generated, projectID, artifactID string) (*artifact.Rendering, error)
}

// maxAncestorDepth bounds the parent-edge walk used to find a knowledge core.
const maxAncestorDepth = 32

// GenerateOptions configures GenerateHandler.
type GenerateOptions struct {
	// Graph defaults to artifact.AllowedGenerations.
	Graph  *artifact.Graph
	Logger *slog.Logger
}

// GenerateHandler derives one artifact from one or more source artifacts.
type GenerateHandler struct {
	reader    ArtifactReader
	graph     artifact.Graph
	generator ArtifactGenerator
	merger    ContextMerger
	renderer  Renderer
	logger    *slog.Logger
}

func NewGenerateHandler(reader ArtifactReader, generator ArtifactGenerator, merger ContextMerger, renderer Renderer, opts GenerateOptions) *GenerateHandler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	graph := artifact.AllowedGenerations
	if opts.Graph != nil {
		graph = *opts.Graph
	}
	return &GenerateHandler{
		reader:    reader,
		graph:     graph,
		generator: generator,
		merger:    merger,
		renderer:  renderer,
		logger:    logging.NewComponentLogger(logger, "generate"),
	}
}

func (h *GenerateHandler) Run(ctx context.Context, job *store.Job) (*store.Bundle, error) {
	var payload GeneratePayload
	if err := decodePayload(job, &payload); err != nil {
		return nil, err
	}
	target := artifact.Type(strings.ToLower(strings.TrimSpace(payload.TargetType)))
	if !target.IsGenerated() {
		return nil, services.Wrap(services.ErrValidation, "generate", "validate payload",
			fmt.Sprintf("target_type %q is not one of %v", payload.TargetType, artifact.GeneratedTypes()), nil)
	}
	ids := payload.SourceIDs()
	if len(ids) == 0 {
		return nil, services.Wrap(services.ErrValidation, "generate", "validate payload", "at least one source artifact id is required", nil)
	}
	logger := logging.WithContext(ctx, h.logger)

	// Every source is loaded and checked before any collaborator runs.
	sources := make([]*artifact.Artifact, 0, len(ids))
	for _, id := range ids {
		src, err := h.reader.GetArtifact(ctx, id)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "generate", "load source", id, err)
		}
		if src == nil || src.ProjectID != job.ProjectID {
			return nil, services.Wrap(services.ErrNotFound, "generate", "load source",
				fmt.Sprintf("artifact %s not found in project %s", id, job.ProjectID), nil)
		}
		if err := h.graph.Check(src.Type, target); err != nil {
			return nil, services.Wrap(services.ErrValidation, "generate", "check legality", id, err)
		}
		sources = append(sources, src)
	}

	model, info, err := h.produce(ctx, logger, sources, target)
	if err != nil {
		return nil, err
	}
	if err := model.CheckContent(); err != nil {
		return nil, services.Wrap(services.ErrSemantic, "generate", "validate content", string(target), err)
	}

	artifactID := newID()
	content, err := artifact.GeneratedContent(model)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "generate", "encode content", string(target), err)
	}
	var renderings []artifact.Rendering
	if target.RequiresBinary() {
		rendering, err := h.render(ctx, model, job.ProjectID, artifactID)
		if err != nil {
			return nil, err
		}
		content.Binary = &artifact.BinaryPointer{Format: rendering.Format, StoragePath: rendering.StoragePath}
		renderings = append(renderings, *rendering)
	}

	child := artifact.Artifact{ID: artifactID, ProjectID: job.ProjectID, Type: target, Content: content}
	edges := make([]artifact.Edge, 0, len(sources))
	for _, src := range sources {
		edges = append(edges, artifact.Edge{
			ParentID:     src.ID,
			ChildID:      artifactID,
			Relationship: artifact.RelationDerivedFrom,
			ProjectID:    job.ProjectID,
		})
	}
	info["artifact_id"] = artifactID
	info["target_type"] = target
	info["source_artifact_ids"] = ids
	info["title"] = model.DisplayTitle()
	result, err := encodeResult(info)
	if err != nil {
		return nil, err
	}
	logger.Info("artifact generated",
		logging.String(logging.FieldArtifactID, artifactID),
		logging.String("target_type", string(target)),
		logging.Int("sources", len(sources)),
	)
	return &store.Bundle{
		JobID:      job.ID,
		ProjectID:  job.ProjectID,
		Artifacts:  []artifact.Artifact{child},
		Edges:      edges,
		Renderings: renderings,
		Result:     result,
	}, nil
}

// produce builds the target model. A single quiz or flashcards source
// converts deterministically; everything else goes through the generator,
// merging contexts first when there are several.
func (h *GenerateHandler) produce(ctx context.Context, logger *slog.Logger, sources []*artifact.Artifact, target artifact.Type) (artifact.Generated, map[string]any, error) {
	info := map[string]any{}
	if len(sources) == 1 && sources[0].Content.Kind == artifact.KindGenerated {
		if model, err := artifact.DecodeModel(sources[0].Type, sources[0].Content.Data); err == nil {
			if converted, ok := artifact.Transform(model, target); ok {
				info["transform"] = true
				return converted, info, nil
			}
		}
	}

	contexts := make([]artifact.KnowledgeContext, 0, len(sources))
	for _, src := range sources {
		kc, err := h.resolveContext(ctx, src)
		if err != nil {
			return nil, nil, err
		}
		contexts = append(contexts, kc)
	}

	kc := contexts[0]
	if len(contexts) > 1 {
		if h.merger == nil {
			return nil, nil, services.Wrap(services.ErrConfiguration, "generate", "merge contexts", "no merger configured", nil)
		}
		combined, err := h.merger.Merge(ctx, contexts)
		if err != nil {
			return nil, nil, passThrough(services.ErrTransient, "generate", "merge contexts", "", err)
		}
		kc = combined.Context()
		info["merged_sources"] = len(contexts)
		if combined.ConflictNotes != "" {
			info["conflict_notes"] = combined.ConflictNotes
		}
		logger.Info("contexts merged",
			logging.Int("sources", len(contexts)),
			logging.Int("concepts", len(combined.Concepts)),
			logging.Bool("conflicts", combined.ConflictNotes != ""),
		)
	}

	if h.generator == nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "generate", string(target), "no generator configured", nil)
	}
	model, err := h.generator.Generate(ctx, kc, target)
	if err != nil {
		return nil, nil, passThrough(services.ErrExternalTool, "generate", string(target), "generation failed", err)
	}
	if model == nil || model.ArtifactType() != target {
		return nil, nil, services.Wrap(services.ErrExternalTool, "generate", string(target), "generator returned no usable model", nil)
	}
	return model, info, nil
}

// resolveContext uses a core directly, synthesizes a context from a
// generated artifact's own content, or walks parent edges to the nearest
// knowledge core.
func (h *GenerateHandler) resolveContext(ctx context.Context, src *artifact.Artifact) (artifact.KnowledgeContext, error) {
	switch src.Content.Kind {
	case artifact.KindCore:
		if src.Content.Core != nil {
			return artifact.ContextFromCore(src.Content.Core), nil
		}
	case artifact.KindGenerated:
		if model, err := artifact.DecodeModel(src.Type, src.Content.Data); err == nil {
			if kc := artifact.ContextFromGenerated(model); !kc.Empty() {
				return kc, nil
			}
		}
	}
	core, err := h.ancestorCore(ctx, src.ID)
	if err != nil {
		return artifact.KnowledgeContext{}, err
	}
	if core == nil {
		return artifact.KnowledgeContext{}, services.Wrap(services.ErrValidation, "generate", "resolve context",
			fmt.Sprintf("no knowledge context derivable for artifact %s", src.ID), nil)
	}
	return artifact.ContextFromCore(core), nil
}

// ancestorCore breadth-first searches parent edges for a knowledge core.
// The walk is a snapshot read; concurrent commits may not be visible.
func (h *GenerateHandler) ancestorCore(ctx context.Context, id string) (*artifact.KnowledgeCore, error) {
	seen := map[string]bool{id: true}
	frontier := []string{id}
	for depth := 0; depth < maxAncestorDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, child := range frontier {
			edges, err := h.reader.ParentEdges(ctx, child)
			if err != nil {
				return nil, services.Wrap(services.ErrTransient, "generate", "walk lineage", child, err)
			}
			for _, e := range edges {
				if seen[e.ParentID] {
					continue
				}
				seen[e.ParentID] = true
				parent, err := h.reader.GetArtifact(ctx, e.ParentID)
				if err != nil {
					return nil, services.Wrap(services.ErrTransient, "generate", "walk lineage", e.ParentID, err)
				}
				if parent == nil {
					continue
				}
				if parent.Type == artifact.TypeKnowledgeCore && parent.Content.Core != nil {
					return parent.Content.Core, nil
				}
				next = append(next, parent.ID)
			}
		}
		frontier = next
	}
	return nil, nil
}

func (h *GenerateHandler) render(ctx context.Context, model artifact.Generated, projectID, artifactID string) (*artifact.Rendering, error) {
	target := model.ArtifactType()
	if h.renderer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "render", "no renderer configured for "+string(target), nil)
	}
	rendering, err := h.renderer.Render(ctx, model, projectID, artifactID)
	if err != nil {
		return nil, passThrough(services.ErrExternalTool, "generate", "render", string(target), err)
	}
	if rendering == nil || rendering.StoragePath == "" {
		return nil, services.Wrap(services.ErrSemantic, "generate", "render",
			fmt.Sprintf("%s requires a %s binary but none was produced", target, artifact.BinaryFormat(target)), nil)
	}
	rendering.ID = newID()
	rendering.ProjectID = projectID
	rendering.ArtifactID = artifactID
	return rendering, nil
}

func (h *GenerateHandler) HealthCheck(context.Context) Health {
	switch {
	case h.reader == nil:
		return Unhealthy("generate", "artifact reader not configured")
	case h.generator == nil:
		return Unhealthy("generate", "artifact generator not configured")
	case h.renderer == nil:
		return Unhealthy("generate", "renderer not configured; exam and slides will fail")
	}
	return Healthy("generate")
}
