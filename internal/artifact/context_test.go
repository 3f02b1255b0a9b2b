package artifact_test

import (
	"strings"
	"testing"

	"studyforge/internal/artifact"
)

func TestContextFromCore(t *testing.T) {
	ctx := artifact.ContextFromCore(validCore())
	if ctx.Title != "Cell Biology" || ctx.Core == nil || ctx.Empty() {
		t.Fatalf("unexpected context %+v", ctx)
	}
	if len(ctx.Concepts) != 1 || ctx.Concepts[0] != "Mitochondria" || ctx.Facts[0] != "Cells are the unit of life" {
		t.Fatalf("unexpected concepts/facts %v %v", ctx.Concepts, ctx.Facts)
	}
	if !strings.Contains(ctx.PromptText(), "Mitochondria") {
		t.Fatal("prompt text should include concepts")
	}
}

func TestContextFromGeneratedNotes(t *testing.T) {
	notes := &artifact.Notes{Title: "Cells", Text: "# Organelles\n- Mitochondria make ATP\n- The nucleus holds DNA\n## Membranes\nText body."}
	ctx := artifact.ContextFromGenerated(notes)
	if ctx.Empty() {
		t.Fatal("expected non-empty context from notes")
	}
	if len(ctx.Concepts) != 2 || ctx.Concepts[1] != "Membranes" {
		t.Fatalf("unexpected concepts %v", ctx.Concepts)
	}
	if len(ctx.Facts) != 2 || ctx.Facts[0] != "Mitochondria make ATP" {
		t.Fatalf("unexpected facts %v", ctx.Facts)
	}
	if !strings.Contains(ctx.Body, "Text body.") {
		t.Fatalf("expected notes body in context, got %q", ctx.Body)
	}
}

func TestContextFromGeneratedQuizAndSlides(t *testing.T) {
	quizCtx := artifact.ContextFromGenerated(quizWith(5))
	if len(quizCtx.Concepts) != 1 || quizCtx.Concepts[0] != "topic" || !strings.Contains(quizCtx.Body, "Question 3?") {
		t.Fatalf("unexpected quiz context %+v", quizCtx)
	}
	slides := &artifact.Slides{Title: "Deck", AudienceLevel: "Beginner", Slides: []artifact.Slide{{Heading: "Intro", MainIdea: "Cells matter"}}}
	slideCtx := artifact.ContextFromGenerated(slides)
	if slideCtx.Concepts[0] != "Intro" || slideCtx.Facts[0] != "Cells matter" {
		t.Fatalf("unexpected slides context %+v", slideCtx)
	}
}

func TestEmptyContext(t *testing.T) {
	if !(artifact.KnowledgeContext{Title: "only a title"}).Empty() {
		t.Fatal("context with only a title should be empty")
	}
	if !artifact.ContextFromGenerated(&artifact.Flashcards{Title: "Empty"}).Empty() {
		t.Fatal("empty deck should yield an empty context")
	}
}
