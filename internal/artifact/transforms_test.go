package artifact_test

import (
	"strings"
	"testing"

	"studyforge/internal/artifact"
)

func TestQuizToFlashcards(t *testing.T) {
	quiz := quizWith(5)
	quiz.Questions[1].CorrectAnswerIndex = 7

	out, ok := artifact.Transform(quiz, artifact.TypeFlashcards)
	if !ok {
		t.Fatal("expected deterministic transform")
	}
	deck := out.(*artifact.Flashcards)
	if len(deck.Cards) != 5 || deck.Title != "Flashcards from Cells" {
		t.Fatalf("unexpected deck %+v", deck)
	}
	first := deck.Cards[0]
	if first.Front != "Question 1?" || !strings.HasPrefix(first.Back, "right") || !strings.Contains(first.Back, "because") {
		t.Fatalf("unexpected card %+v", first)
	}
	if first.Hint != "Recall the quiz question." || first.SourceReference != "Quiz Q1" {
		t.Fatalf("unexpected card metadata %+v", first)
	}
	if !strings.HasPrefix(deck.Cards[1].Back, "Answer key missing") {
		t.Fatalf("expected missing answer marker, got %q", deck.Cards[1].Back)
	}
	if err := deck.CheckContent(); err != nil {
		t.Fatalf("transformed deck should pass threshold: %v", err)
	}
}

func TestFlashcardsToQuiz(t *testing.T) {
	deck := &artifact.Flashcards{Title: "Deck", Cards: []artifact.Flashcard{{Front: "ATP", Back: "Energy", Hint: "cells"}, {Front: "DNA", Back: "Genes"}}}
	out, ok := artifact.Transform(deck, artifact.TypeQuiz)
	if !ok {
		t.Fatal("expected deterministic transform")
	}
	quiz := out.(*artifact.Quiz)
	if len(quiz.Questions) != 2 || quiz.Title != "Quiz from Deck" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	q := quiz.Questions[0]
	if q.Options[q.CorrectAnswerIndex] != "Energy" || q.Options[1] != "I don't know" {
		t.Fatalf("unexpected options %v", q.Options)
	}
	if quiz.Questions[1].Explanation != "Hint: No hint" {
		t.Fatalf("unexpected explanation %q", quiz.Questions[1].Explanation)
	}
}

func TestTransformUnsupportedPair(t *testing.T) {
	if _, ok := artifact.Transform(quizWith(5), artifact.TypeExam); ok {
		t.Fatal("quiz -> exam has no deterministic transform")
	}
	if _, ok := artifact.Transform(&artifact.Notes{}, artifact.TypeQuiz); ok {
		t.Fatal("notes -> quiz has no deterministic transform")
	}
}
