package artifact

import "fmt"

// Transform converts one generated model into another without calling a
// generator. Only quiz and flashcards convert deterministically.
func Transform(model Generated, target Type) (Generated, bool) {
	switch src := model.(type) {
	case *Quiz:
		if target == TypeFlashcards {
			return QuizToFlashcards(src), true
		}
	case *Flashcards:
		if target == TypeQuiz {
			return FlashcardsToQuiz(src), true
		}
	}
	return nil, false
}

// QuizToFlashcards turns each question into a recall card whose back holds
// the correct option and its explanation.
func QuizToFlashcards(q *Quiz) *Flashcards {
	cards := make([]Flashcard, 0, len(q.Questions))
	for _, question := range q.Questions {
		answer := "Answer key missing"
		if i := question.CorrectAnswerIndex; i >= 0 && i < len(question.Options) {
			answer = question.Options[i]
		}
		back := answer
		if question.Explanation != "" {
			back += "\n\n" + question.Explanation
		}
		cards = append(cards, Flashcard{
			Front:           question.Text,
			Back:            back,
			Hint:            "Recall the quiz question.",
			SourceReference: "Quiz Q" + question.ID,
		})
	}
	return &Flashcards{Title: "Flashcards from " + q.Title, Cards: cards}
}

// FlashcardsToQuiz builds a self-check quiz with the card back as the
// correct first option.
func FlashcardsToQuiz(f *Flashcards) *Quiz {
	questions := make([]QuizQuestion, 0, len(f.Cards))
	for i, card := range f.Cards {
		hint := card.Hint
		if hint == "" {
			hint = "No hint"
		}
		questions = append(questions, QuizQuestion{
			ID:                 fmt.Sprintf("q-from-%d", i),
			Text:               "Recite the definition or answer for: " + card.Front,
			Type:               "MCQ",
			Options:            []string{card.Back, "I don't know"},
			CorrectAnswerIndex: 0,
			Explanation:        "Hint: " + hint,
			TopicFocus:         "Recall",
		})
	}
	return &Quiz{Title: "Quiz from " + f.Title, Questions: questions}
}
