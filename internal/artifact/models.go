package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Quiz is a short self-check question set.
type Quiz struct {
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

type QuizQuestion struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text"`
	Type               string   `json:"type"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
	Explanation        string   `json:"explanation"`
	TopicFocus         string   `json:"topic_focus"`
}

// Exam is a graded assessment rendered to PDF.
type Exam struct {
	Title        string         `json:"title"`
	Instructions string         `json:"instructions"`
	Questions    []ExamQuestion `json:"questions"`
	Rubric       string         `json:"rubric"`
}

// Exam question types.
const (
	ExamMCQ         = "MCQ"
	ExamShortAnswer = "Short Answer"
	ExamProblemSet  = "Problem Set"
)

type ExamQuestion struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Type         string   `json:"type"`
	Options      []string `json:"options,omitempty"`
	Points       int      `json:"points"`
	ModelAnswer  string   `json:"model_answer"`
	GradingNotes string   `json:"grading_notes"`
}

// TotalPoints sums question points.
func (e *Exam) TotalPoints() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// Flashcards is a recall deck.
type Flashcards struct {
	Title string      `json:"title"`
	Cards []Flashcard `json:"cards"`
}

type Flashcard struct {
	Front           string `json:"front"`
	Back            string `json:"back"`
	Hint            string `json:"hint,omitempty"`
	SourceReference string `json:"source_reference"`
}

// Notes is a markdown study document.
type Notes struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Slides is a presentation rendered to PPTX.
type Slides struct {
	Title         string  `json:"title"`
	AudienceLevel string  `json:"audience_level"`
	Slides        []Slide `json:"slides"`
}

type Slide struct {
	Heading      string   `json:"heading"`
	MainIdea     string   `json:"main_idea"`
	BulletPoints []string `json:"bullet_points"`
	VisualCue    string   `json:"visual_cue"`
	SpeakerNotes string   `json:"speaker_notes"`
}

// Minimum content thresholds for committed generated artifacts.
const (
	MinQuizQuestions = 5
	MinExamQuestions = 10
	MinFlashcards    = 5
	MinSlides        = 3
	MinNotesChars    = 200
)

// ErrTooThin marks a generated artifact below its content threshold.
var ErrTooThin = errors.New("generated content below threshold")

// Generated is implemented by every typed generated model.
type Generated interface {
	ArtifactType() Type
	// CheckContent returns ErrTooThin (wrapped) when the model falls
	// short of its type's threshold.
	CheckContent() error
	DisplayTitle() string
}

func (*Quiz) ArtifactType() Type       { return TypeQuiz }
func (*Exam) ArtifactType() Type       { return TypeExam }
func (*Flashcards) ArtifactType() Type { return TypeFlashcards }
func (*Notes) ArtifactType() Type      { return TypeNotes }
func (*Slides) ArtifactType() Type     { return TypeSlides }

func (q *Quiz) DisplayTitle() string       { return q.Title }
func (e *Exam) DisplayTitle() string       { return e.Title }
func (f *Flashcards) DisplayTitle() string { return f.Title }
func (n *Notes) DisplayTitle() string      { return n.Title }
func (s *Slides) DisplayTitle() string     { return s.Title }

func (q *Quiz) CheckContent() error {
	return atLeast(TypeQuiz, "questions", len(q.Questions), MinQuizQuestions)
}

func (e *Exam) CheckContent() error {
	return atLeast(TypeExam, "questions", len(e.Questions), MinExamQuestions)
}

func (f *Flashcards) CheckContent() error {
	return atLeast(TypeFlashcards, "cards", len(f.Cards), MinFlashcards)
}

func (n *Notes) CheckContent() error {
	return atLeast(TypeNotes, "characters of body text", utf8.RuneCountInString(strings.TrimSpace(n.Text)), MinNotesChars)
}

func (s *Slides) CheckContent() error {
	return atLeast(TypeSlides, "slides", len(s.Slides), MinSlides)
}

func atLeast(t Type, unit string, got, want int) error {
	if got < want {
		return fmt.Errorf("%w: %s has %d %s, need at least %d", ErrTooThin, t, got, unit, want)
	}
	return nil
}

// NewModel returns an empty model for t.
func NewModel(t Type) (Generated, error) {
	switch t {
	case TypeQuiz:
		return &Quiz{}, nil
	case TypeExam:
		return &Exam{}, nil
	case TypeFlashcards:
		return &Flashcards{}, nil
	case TypeNotes:
		return &Notes{}, nil
	case TypeSlides:
		return &Slides{}, nil
	default:
		return nil, fmt.Errorf("%s is not a generated type", t)
	}
}

// DecodeModel parses generated content data into the typed model for t.
func DecodeModel(t Type, data json.RawMessage) (Generated, error) {
	model, err := NewModel(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", t, err)
	}
	return model, nil
}

// GeneratedContent wraps a model as kind=generated content.
func GeneratedContent(model Generated) (Content, error) {
	data, err := json.Marshal(model)
	if err != nil {
		return Content{}, fmt.Errorf("encode %s data: %w", model.ArtifactType(), err)
	}
	return Content{Kind: KindGenerated, Data: data}, nil
}
