package artifact

import (
	"fmt"
	"slices"
	"strings"
)

// KnowledgeContext is the material a generation call works from. It comes
// from a knowledge core directly, is synthesized from a generated artifact's
// own content when chaining, or is the product of merging several contexts.
type KnowledgeContext struct {
	Title         string
	Summary       string
	Concepts      []string
	Facts         []string
	Body          string
	SourceTitles  []string
	ConflictNotes string
	Core          *KnowledgeCore
}

// Empty reports whether the context carries nothing a generator could use.
func (c KnowledgeContext) Empty() bool {
	return len(c.Concepts) == 0 && len(c.Facts) == 0 && strings.TrimSpace(c.Body) == "" && c.Core == nil
}

// ContextFromCore uses a knowledge core as-is.
func ContextFromCore(core *KnowledgeCore) KnowledgeContext {
	ctx := KnowledgeContext{
		Title:        core.Title,
		Summary:      core.Summary,
		SourceTitles: []string{core.Title},
		Core:         core,
		Body:         core.PlainText(),
	}
	for _, c := range core.Concepts {
		ctx.Concepts = append(ctx.Concepts, c.Name)
	}
	for _, f := range core.KeyFacts {
		ctx.Facts = append(ctx.Facts, f.Fact)
	}
	return ctx
}

// ContextFromGenerated synthesizes a context from a generated artifact so it
// can feed another generation, e.g. an exam built from existing notes.
func ContextFromGenerated(model Generated) KnowledgeContext {
	ctx := KnowledgeContext{Title: model.DisplayTitle(), SourceTitles: []string{model.DisplayTitle()}}
	var body strings.Builder
	switch m := model.(type) {
	case *Quiz:
		for _, q := range m.Questions {
			ctx.Concepts = appendUnique(ctx.Concepts, q.TopicFocus)
			answer := ""
			if q.CorrectAnswerIndex >= 0 && q.CorrectAnswerIndex < len(q.Options) {
				answer = q.Options[q.CorrectAnswerIndex]
			}
			ctx.Facts = appendUnique(ctx.Facts, strings.TrimSpace(answer+". "+q.Explanation))
			fmt.Fprintf(&body, "Q: %s\nA: %s\n%s\n\n", q.Text, answer, q.Explanation)
		}
		ctx.Summary = fmt.Sprintf("A quiz of %d questions covering %s.", len(m.Questions), strings.Join(ctx.Concepts, ", "))
	case *Exam:
		for _, q := range m.Questions {
			ctx.Facts = appendUnique(ctx.Facts, q.ModelAnswer)
			fmt.Fprintf(&body, "%s (%s, %d points)\nModel answer: %s\n\n", q.Text, q.Type, q.Points, q.ModelAnswer)
		}
		ctx.Concepts = appendUnique(ctx.Concepts, m.Title)
		ctx.Summary = strings.TrimSpace(m.Instructions)
	case *Flashcards:
		for _, card := range m.Cards {
			ctx.Concepts = appendUnique(ctx.Concepts, card.Front)
			ctx.Facts = appendUnique(ctx.Facts, card.Back)
			fmt.Fprintf(&body, "%s: %s\n", card.Front, card.Back)
		}
		ctx.Summary = fmt.Sprintf("A deck of %d flashcards.", len(m.Cards))
	case *Notes:
		for _, line := range strings.Split(m.Text, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "#"):
				ctx.Concepts = appendUnique(ctx.Concepts, strings.TrimSpace(strings.TrimLeft(line, "#")))
			case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
				ctx.Facts = appendUnique(ctx.Facts, strings.TrimSpace(line[2:]))
			}
		}
		body.WriteString(m.Text)
		ctx.Summary = truncateRunes(strings.Join(strings.Fields(m.Text), " "), 500)
	case *Slides:
		for _, s := range m.Slides {
			ctx.Concepts = appendUnique(ctx.Concepts, s.Heading)
			ctx.Facts = appendUnique(ctx.Facts, s.MainIdea)
			fmt.Fprintf(&body, "%s\n%s\n- %s\nNotes: %s\n\n", s.Heading, s.MainIdea, strings.Join(s.BulletPoints, "\n- "), s.SpeakerNotes)
		}
		ctx.Summary = fmt.Sprintf("A %s-level presentation of %d slides.", m.AudienceLevel, len(m.Slides))
	}
	ctx.Body = strings.TrimSpace(body.String())
	return ctx
}

// PromptText renders the context for a generation prompt.
func (c KnowledgeContext) PromptText() string {
	if c.Core != nil && len(c.SourceTitles) <= 1 {
		return c.Core.PlainText()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", c.Title)
	if len(c.SourceTitles) > 1 {
		fmt.Fprintf(&b, "Sources: %s\n", strings.Join(c.SourceTitles, "; "))
	}
	fmt.Fprintf(&b, "Summary: %s\n", c.Summary)
	if len(c.Concepts) > 0 {
		fmt.Fprintf(&b, "\nKey concepts:\n- %s\n", strings.Join(c.Concepts, "\n- "))
	}
	if len(c.Facts) > 0 {
		fmt.Fprintf(&b, "\nKey facts:\n- %s\n", strings.Join(c.Facts, "\n- "))
	}
	if c.ConflictNotes != "" {
		fmt.Fprintf(&b, "\nConflicts between sources (present both sides): %s\n", c.ConflictNotes)
	}
	if c.Body != "" {
		fmt.Fprintf(&b, "\nMaterial:\n%s\n", c.Body)
	}
	return b.String()
}

func appendUnique(list []string, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" || slices.Contains(list, value) {
		return list
	}
	return append(list, value)
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
