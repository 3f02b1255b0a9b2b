package merge

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"studyforge/internal/artifact"
	"studyforge/internal/config"
	"studyforge/internal/logging"
	"studyforge/internal/services/llm"
	"studyforge/internal/textutil"
)

// Completer issues one JSON-mode completion.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options bounds summary size and merge fan-out.
type Options struct {
	MaxConcepts   int
	MaxFacts      int
	AbstractChars int
	// MaxDepth caps pairwise merge levels; beyond it the remaining
	// summaries are merged with FallbackMerge.
	MaxDepth    int
	Concurrency int
}

// OptionsFromConfig maps the [merge] section.
func OptionsFromConfig(cfg config.Merge) Options {
	return Options{
		MaxConcepts:   cfg.MaxConcepts,
		MaxFacts:      cfg.MaxFacts,
		AbstractChars: cfg.AbstractChars,
		MaxDepth:      cfg.MaxDepth,
		Concurrency:   cfg.SummaryConcurrency,
	}
}

func (o Options) withDefaults() Options {
	d := OptionsFromConfig(config.Default().Merge)
	if o.MaxConcepts <= 0 {
		o.MaxConcepts = d.MaxConcepts
	}
	if o.MaxFacts <= 0 {
		o.MaxFacts = d.MaxFacts
	}
	if o.AbstractChars <= 0 {
		o.AbstractChars = d.AbstractChars
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	return o
}

// singlePassLimit is the largest set merged in one call.
const singlePassLimit = 3

// Merger runs the summarize-then-merge tree. A nil completer selects the
// deterministic paths throughout.
type Merger struct {
	completer Completer
	opts      Options
	logger    *slog.Logger
}

// New constructs a Merger.
func New(completer Completer, opts Options, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Merger{
		completer: completer,
		opts:      opts.withDefaults(),
		logger:    logging.NewComponentLogger(logger, "merge"),
	}
}

// Merge collapses contexts into one combined context. A single input is
// summarized and passed through without a merge call.
func (m *Merger) Merge(ctx context.Context, contexts []artifact.KnowledgeContext) (Combined, error) {
	if len(contexts) == 0 {
		return Combined{}, errors.New("merge: no contexts")
	}
	summaries, err := m.Summarize(ctx, contexts)
	if err != nil {
		return Combined{}, err
	}
	if len(summaries) == 1 {
		s := summaries[0]
		return Combined{
			Concepts:      s.Concepts,
			Facts:         s.Facts,
			Abstract:      s.Abstract,
			SourceTitles:  s.SourceTitles,
			ConflictNotes: s.ConflictNotes,
		}, nil
	}
	return m.mergeTree(ctx, summaries, 0)
}

// Summarize compresses each context independently. Individual summary
// failures degrade to TruncateSummary; only context cancellation is
// returned as an error.
func (m *Merger) Summarize(ctx context.Context, contexts []artifact.KnowledgeContext) ([]Summary, error) {
	out := make([]Summary, len(contexts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)
	for i, kc := range contexts {
		g.Go(func() error {
			out[i] = m.summarizeOne(gctx, kc)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Merger) summarizeOne(ctx context.Context, kc artifact.KnowledgeContext) Summary {
	fallback := TruncateSummary(kc, m.opts)
	if m.completer == nil {
		return fallback
	}
	raw, err := m.completer.CompleteJSON(ctx, summarySystemPrompt(m.opts), kc.PromptText())
	if err == nil {
		var parsed Summary
		if err = llm.DecodeLLMJSON(raw, &parsed); err == nil {
			s := m.bound(parsed)
			if len(s.Concepts) > 0 || len(s.Facts) > 0 {
				if s.Title == "" {
					s.Title = kc.Title
				}
				s.SourceTitles = fallback.SourceTitles
				s.ConflictNotes = fallback.ConflictNotes
				return s
			}
			err = errors.New("summary has no concepts or facts")
		}
	}
	logging.WarnWithContext(m.logger, "summary unavailable, truncating", "merge_summary_fallback",
		logging.String("source", kc.Title),
		logging.Error(err),
	)
	return fallback
}

// mergeTree merges up to three summaries in one pass and pairs adjacent
// summaries into intermediate results otherwise.
func (m *Merger) mergeTree(ctx context.Context, summaries []Summary, depth int) (Combined, error) {
	if len(summaries) <= singlePassLimit {
		return m.mergeFlat(ctx, summaries), nil
	}
	if depth >= m.opts.MaxDepth {
		m.logger.Warn("merge depth cap reached, using set union",
			logging.Int("depth", depth),
			logging.Int("remaining", len(summaries)),
		)
		return FallbackMerge(summaries, m.opts), nil
	}

	next := make([]Summary, (len(summaries)+1)/2)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)
	for i := range next {
		pair := summaries[2*i : min(2*i+2, len(summaries))]
		g.Go(func() error {
			next[i] = m.mergeFlat(gctx, pair).asSummary(pair)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Combined{}, err
	}
	m.logger.Debug("merge level complete",
		logging.Int("depth", depth),
		logging.Int("inputs", len(summaries)),
		logging.Int("outputs", len(next)),
	)
	return m.mergeTree(ctx, next, depth+1)
}

type mergeResponse struct {
	Concepts      []string `json:"concepts"`
	Facts         []string `json:"facts"`
	Abstract      string   `json:"abstract"`
	ConflictNotes string   `json:"conflict_notes"`
}

// mergeFlat merges a small set in one completion, falling back to
// FallbackMerge on any failure.
func (m *Merger) mergeFlat(ctx context.Context, summaries []Summary) Combined {
	fallback := FallbackMerge(summaries, m.opts)
	if len(summaries) == 1 || m.completer == nil {
		return fallback
	}
	raw, err := m.completer.CompleteJSON(ctx, mergeSystemPrompt(m.opts), mergeUserPrompt(summaries))
	if err == nil {
		var parsed mergeResponse
		if err = llm.DecodeLLMJSON(raw, &parsed); err == nil {
			concepts := dedupe(parsed.Concepts)
			facts := dedupe(parsed.Facts)
			if len(concepts) > 0 || len(facts) > 0 {
				return Combined{
					Concepts:      concepts,
					Facts:         facts,
					Abstract:      textutil.Truncate(parsed.Abstract, m.opts.AbstractChars),
					SourceTitles:  fallback.SourceTitles,
					ConflictNotes: joinConflicts(fallback.ConflictNotes, parsed.ConflictNotes),
				}
			}
			err = errors.New("merge result has no concepts or facts")
		}
	}
	logging.WarnWithContext(m.logger, "merge unavailable, using set union", "merge_fallback",
		logging.Int("summaries", len(summaries)),
		logging.Error(err),
	)
	return fallback
}

func (m *Merger) bound(s Summary) Summary {
	s.Concepts = capList(dedupe(s.Concepts), m.opts.MaxConcepts)
	s.Facts = capList(dedupe(s.Facts), m.opts.MaxFacts)
	s.Abstract = textutil.Truncate(s.Abstract, m.opts.AbstractChars)
	return s
}

func joinConflicts(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(p, "none") {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "; ")
}
