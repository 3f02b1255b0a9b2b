package render

import (
	"fmt"
	"strings"

	"studyforge/internal/artifact"
)

const optionLetters = "ABCDEFGHIJ"

// ExamPDF lays out the question paper followed by an answer key on a new
// page.
func ExamPDF(exam *artifact.Exam) []byte {
	w := newPDFWriter()
	w.paragraph(exam.Title, 18, true, 0)
	w.space(6)
	if exam.Instructions != "" {
		w.paragraph(exam.Instructions, 11, false, 0)
	}
	w.paragraph(fmt.Sprintf("Total points: %d", exam.TotalPoints()), 11, true, 0)
	w.space(11)

	for i, q := range exam.Questions {
		header := fmt.Sprintf("%d. [%s, %d points] %s", i+1, q.Type, q.Points, q.Text)
		w.paragraph(header, 12, true, 0)
		for j, opt := range q.Options {
			label := "-"
			if j < len(optionLetters) {
				label = string(optionLetters[j]) + "."
			}
			w.paragraph(label+" "+opt, 11, false, 18)
		}
		if q.Type != artifact.ExamMCQ {
			for range answerLines(q.Type) {
				w.space(11)
			}
		}
		w.space(11)
	}

	w.pageBreak()
	w.paragraph("Answer Key", 16, true, 0)
	w.space(6)
	for i, q := range exam.Questions {
		w.paragraph(fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(q.ModelAnswer)), 11, true, 0)
		if notes := strings.TrimSpace(q.GradingNotes); notes != "" {
			w.paragraph("Grading: "+notes, 10, false, 18)
		}
		w.space(8)
	}
	if rubric := strings.TrimSpace(exam.Rubric); rubric != "" {
		w.space(6)
		w.paragraph("Rubric", 13, true, 0)
		w.paragraph(rubric, 10, false, 0)
	}
	return w.bytes()
}

// answerLines is the writing space reserved below open questions.
func answerLines(questionType string) int {
	if questionType == artifact.ExamProblemSet {
		return 10
	}
	return 4
}
