package merge

import (
	"strings"

	"studyforge/internal/artifact"
	"studyforge/internal/textutil"
)

// Summary is the bounded compression of one knowledge context.
type Summary struct {
	Title         string   `json:"title"`
	Concepts      []string `json:"concepts"`
	Facts         []string `json:"facts"`
	Abstract      string   `json:"abstract"`
	SourceTitles  []string `json:"-"`
	ConflictNotes string   `json:"-"`
}

// Combined is the result of merging one or more summaries.
type Combined struct {
	Concepts      []string
	Facts         []string
	Abstract      string
	SourceTitles  []string
	ConflictNotes string
}

// Context converts the merge result into the generation input.
func (c Combined) Context() artifact.KnowledgeContext {
	title := "Combined material"
	if len(c.SourceTitles) == 1 {
		title = c.SourceTitles[0]
	} else if len(c.SourceTitles) > 1 {
		title = strings.Join(c.SourceTitles, " / ")
	}
	return artifact.KnowledgeContext{
		Title:         title,
		Summary:       c.Abstract,
		Concepts:      append([]string(nil), c.Concepts...),
		Facts:         append([]string(nil), c.Facts...),
		SourceTitles:  append([]string(nil), c.SourceTitles...),
		ConflictNotes: c.ConflictNotes,
	}
}

// asSummary re-wraps an intermediate merge of pair so it can feed the next
// merge level. A lone summary keeps its title.
func (c Combined) asSummary(pair []Summary) Summary {
	title := ""
	switch len(pair) {
	case 0:
	case 1:
		title = pair[0].Title
	default:
		titles := make([]string, len(pair))
		for i, s := range pair {
			titles[i] = s.Title
		}
		title = "Merged: " + strings.Join(titles, ", ")
	}
	return Summary{
		Title:         title,
		Concepts:      c.Concepts,
		Facts:         c.Facts,
		Abstract:      c.Abstract,
		SourceTitles:  c.SourceTitles,
		ConflictNotes: c.ConflictNotes,
	}
}

// TruncateSummary is the deterministic summary used when no completion
// backend is available: the first concepts and facts verbatim and the
// context summary cut to the abstract budget.
func TruncateSummary(kc artifact.KnowledgeContext, opts Options) Summary {
	opts = opts.withDefaults()
	abstract := kc.Summary
	if strings.TrimSpace(abstract) == "" {
		abstract = kc.Body
	}
	return Summary{
		Title:         kc.Title,
		Concepts:      capList(dedupe(kc.Concepts), opts.MaxConcepts),
		Facts:         capList(dedupe(kc.Facts), opts.MaxFacts),
		Abstract:      textutil.Truncate(abstract, opts.AbstractChars),
		SourceTitles:  sourceTitles(kc),
		ConflictNotes: kc.ConflictNotes,
	}
}

// FallbackMerge unions concepts and facts in order of first appearance and
// concatenates abstracts, truncated to the abstract budget. It is pure.
func FallbackMerge(summaries []Summary, opts Options) Combined {
	opts = opts.withDefaults()
	var out Combined
	abstracts := make([]string, 0, len(summaries))
	var conflicts []string
	for _, s := range summaries {
		out.Concepts = union(out.Concepts, s.Concepts)
		out.Facts = union(out.Facts, s.Facts)
		out.SourceTitles = union(out.SourceTitles, s.SourceTitles)
		if a := strings.TrimSpace(s.Abstract); a != "" {
			abstracts = append(abstracts, a)
		}
		if n := strings.TrimSpace(s.ConflictNotes); n != "" {
			conflicts = append(conflicts, n)
		}
	}
	out.Abstract = textutil.Truncate(strings.Join(abstracts, " "), opts.AbstractChars)
	out.ConflictNotes = strings.Join(conflicts, "; ")
	return out
}

func sourceTitles(kc artifact.KnowledgeContext) []string {
	if len(kc.SourceTitles) > 0 {
		return dedupe(kc.SourceTitles)
	}
	if kc.Title != "" {
		return []string{kc.Title}
	}
	return nil
}

// union appends the entries of add whose normalized key is not already in
// base, preserving first-appearance order.
func union(base, add []string) []string {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, item := range list {
			item = strings.TrimSpace(item)
			key := textutil.NormalizeKey(item)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func dedupe(list []string) []string { return union(nil, list) }

func capList(list []string, limit int) []string {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}
