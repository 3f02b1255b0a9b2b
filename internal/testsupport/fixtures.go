package testsupport

import (
	"fmt"
	"strings"

	"studyforge/internal/artifact"
)

// SampleCore returns a knowledge core that passes validation. Each concept
// name becomes a concept and a matching key fact.
func SampleCore(title string, concepts ...string) *artifact.KnowledgeCore {
	if len(concepts) == 0 {
		concepts = []string{"Mitochondria", "Ribosome"}
	}
	core := &artifact.KnowledgeCore{
		Title:            title,
		Summary:          "An overview of " + strings.ToLower(title) + ".",
		SectionHierarchy: []artifact.Section{{Title: title, Summary: "Main section", Subsections: []artifact.Subsection{{Title: "Basics", Summary: "Foundations"}}}},
		Notes:            []artifact.NoteBlock{{Heading: "Overview", Bullets: []string{"Key ideas of " + title}}},
		Definitions:      []artifact.Definition{{Term: concepts[0], Definition: "A core idea", Context: title}},
		Examples:         []artifact.Example{{Description: "Worked example", Relevance: "Illustrates " + concepts[0]}},
	}
	for i, name := range concepts {
		core.Concepts = append(core.Concepts, artifact.Concept{Name: name, Description: name + " explained", ImportanceScore: 10 - i})
		core.KeyFacts = append(core.KeyFacts, artifact.KeyFact{Fact: name + " is important", Category: title})
	}
	return core
}

// SampleQuiz returns a quiz with n questions.
func SampleQuiz(n int) *artifact.Quiz {
	q := &artifact.Quiz{Title: "Sample Quiz"}
	for i := 0; i < n; i++ {
		q.Questions = append(q.Questions, artifact.QuizQuestion{
			ID:                 fmt.Sprintf("q%d", i+1),
			Text:               fmt.Sprintf("Question %d?", i+1),
			Type:               "MCQ",
			Options:            []string{"A", "B", "C", "D"},
			CorrectAnswerIndex: i % 4,
			Explanation:        fmt.Sprintf("Because of reason %d", i+1),
			TopicFocus:         fmt.Sprintf("Topic %d", i%3),
		})
	}
	return q
}

// SampleExam returns an exam with n questions.
func SampleExam(n int) *artifact.Exam {
	e := &artifact.Exam{Title: "Sample Exam", Instructions: "Answer every question.", Rubric: "One point each."}
	for i := 0; i < n; i++ {
		e.Questions = append(e.Questions, artifact.ExamQuestion{
			ID:          fmt.Sprintf("e%d", i+1),
			Text:        fmt.Sprintf("Explain concept %d.", i+1),
			Type:        artifact.ExamShortAnswer,
			Points:      2,
			ModelAnswer: fmt.Sprintf("Concept %d is explained like this.", i+1),
		})
	}
	return e
}

// SampleFlashcards returns a deck with n cards.
func SampleFlashcards(n int) *artifact.Flashcards {
	f := &artifact.Flashcards{Title: "Sample Deck"}
	for i := 0; i < n; i++ {
		f.Cards = append(f.Cards, artifact.Flashcard{
			Front:           fmt.Sprintf("Term %d", i+1),
			Back:            fmt.Sprintf("Meaning %d", i+1),
			SourceReference: "Sample",
		})
	}
	return f
}

// SampleNotes returns notes with at least MinNotesChars of text.
func SampleNotes() *artifact.Notes {
	return &artifact.Notes{
		Title: "Sample Notes",
		Text:  strings.Repeat("Cells convert nutrients into usable energy through respiration. ", 5),
	}
}

// SampleSlides returns a deck with n slides.
func SampleSlides(n int) *artifact.Slides {
	s := &artifact.Slides{Title: "Sample Deck", AudienceLevel: "intro"}
	for i := 0; i < n; i++ {
		s.Slides = append(s.Slides, artifact.Slide{
			Heading:      fmt.Sprintf("Slide %d", i+1),
			MainIdea:     fmt.Sprintf("Idea %d", i+1),
			BulletPoints: []string{"First point", "Second point"},
			SpeakerNotes: "Talk through the idea.",
		})
	}
	return s
}
