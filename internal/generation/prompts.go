package generation

import (
	"fmt"
	"strings"

	"studyforge/internal/artifact"
)

const knowledgeCoreSystemPrompt = `You are a knowledge engineer. Extract a definitive source of truth from the
provided material and return one JSON object with these keys:
  "title": string,
  "summary": 2-3 sentence overview,
  "concepts": [{"name", "description", "importance_score" (1-10)}],
  "section_hierarchy": [{"title", "summary", "subsections": [{"title", "summary"}]}],
  "notes": [{"heading", "bullets": [string]}],
  "definitions": [{"term", "definition", "context"}],
  "examples": [{"description", "relevance"}],
  "key_facts": [{"fact", "category"}]
Every list must be non-empty. Be exhaustive and prefer detail in notes.
All text must be plain prose: no Markdown, no LaTeX, and none of the
characters $ # * or backticks. Write formulas in words.`

func knowledgeCoreUserPrompt(title, text string) string {
	return fmt.Sprintf("Source title: %s\n\nMaterial:\n%s", title, text)
}

var artifactPrompts = map[artifact.Type]string{
	artifact.TypeQuiz: fmt.Sprintf(`You are an examiner writing a self-check quiz.
Return one JSON object: {"title": string, "questions": [{"id", "text",
"type" ("MCQ" or "True/False"), "options": [string], "correct_answer_index"
(0-based), "explanation", "topic_focus"}]}.
Write 10-15 questions and never fewer than %d. Mix true/false and multiple
choice. Cover the most important concepts. Questions must be unambiguous.`, artifact.MinQuizQuestions),

	artifact.TypeExam: fmt.Sprintf(`You are an academic assessment designer writing a graded exam.
Return one JSON object: {"title": string, "instructions": string,
"rubric": string, "questions": [{"id", "text", "type" ("MCQ", "Short Answer"
or "Problem Set"), "options": [string] (MCQ only), "points": integer,
"model_answer", "grading_notes"}]}.
Write at least %d questions: six MCQ worth 2 points, three short answer worth
5 points and at least one problem set worth 10 points. Every question needs a
complete model answer and grading notes. Use LaTeX for mathematics.`, artifact.MinExamQuestions),

	artifact.TypeFlashcards: fmt.Sprintf(`You are a tutor writing study flashcards.
Return one JSON object: {"title": string, "cards": [{"front", "back",
"hint" (optional), "source_reference"}]}.
Write 15-20 cards and never fewer than %d. Keep backs concise but complete.`, artifact.MinFlashcards),

	artifact.TypeNotes: fmt.Sprintf(`You are an academic note-taker.
Return one JSON object: {"title": string, "text": string} where text is
detailed Markdown study notes of at least %d characters: a # heading, ##
and ### sections, bullet points for key concepts, definitions, examples and
key takeaways. Use LaTeX for formulas.`, artifact.MinNotesChars),

	artifact.TypeSlides: fmt.Sprintf(`You are a content designer building a presentation.
Return one JSON object: {"title": string, "audience_level": string,
"slides": [{"heading", "main_idea", "bullet_points": [3-5 strings],
"visual_cue", "speaker_notes"}]}.
Write 10-12 slides and never fewer than %d, including a title slide and a
conclusion slide. Keep slides concise and scannable.`, artifact.MinSlides),
}

func artifactUserPrompt(target artifact.Type, kc artifact.KnowledgeContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create %s from the following course material.\n\n", target)
	b.WriteString(kc.PromptText())
	return b.String()
}
