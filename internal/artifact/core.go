package artifact

import (
	"errors"
	"fmt"
	"strings"
)

// KnowledgeCore is the structured plain-text summary produced for every
// ingested source. It is the root of the artifact DAG.
type KnowledgeCore struct {
	Title            string       `json:"title"`
	Summary          string       `json:"summary"`
	Concepts         []Concept    `json:"concepts"`
	SectionHierarchy []Section    `json:"section_hierarchy"`
	Notes            []NoteBlock  `json:"notes"`
	Definitions      []Definition `json:"definitions"`
	Examples         []Example    `json:"examples"`
	KeyFacts         []KeyFact    `json:"key_facts"`
}

type Concept struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	ImportanceScore int    `json:"importance_score"`
}

type Section struct {
	Title       string       `json:"title"`
	Summary     string       `json:"summary"`
	Subsections []Subsection `json:"subsections"`
}

type Subsection struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type NoteBlock struct {
	Heading string   `json:"heading"`
	Bullets []string `json:"bullets"`
}

type Definition struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Context    string `json:"context"`
}

type Example struct {
	Description string `json:"description"`
	Relevance   string `json:"relevance"`
}

type KeyFact struct {
	Fact     string `json:"fact"`
	Category string `json:"category"`
}

// ForbiddenTokens are LaTeX and Markdown markers that may not appear in any
// knowledge core text field. Order matters for reporting: "**" is checked
// before "*".
var ForbiddenTokens = []string{"$", `\(`, `\)`, `\[`, `\]`, "#", "**", "*", "`"}

var (
	// ErrCoreIncomplete marks a knowledge core with an empty required field.
	ErrCoreIncomplete = errors.New("knowledge core incomplete")
	// ErrCoreMarkup marks a knowledge core text field containing markup.
	ErrCoreMarkup = errors.New("knowledge core contains markup")
)

// FieldError pins a validation failure to a field path such as
// "concepts[0].name".
type FieldError struct {
	Kind  error
	Path  string
	Token string
}

func (e *FieldError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: forbidden token %q in %s", e.Kind, e.Token, e.Path)
	}
	return fmt.Sprintf("%s: empty or missing %q", e.Kind, e.Path)
}

func (e *FieldError) Unwrap() error { return e.Kind }

// Validate enforces the knowledge core contract: every required section is
// non-empty and every text field is free of ForbiddenTokens. The first
// violation is returned.
func (c *KnowledgeCore) Validate() error {
	if c == nil {
		return &FieldError{Kind: ErrCoreIncomplete, Path: "core"}
	}
	required := []struct {
		path  string
		empty bool
	}{
		{"title", strings.TrimSpace(c.Title) == ""},
		{"summary", strings.TrimSpace(c.Summary) == ""},
		{"concepts", len(c.Concepts) == 0},
		{"section_hierarchy", len(c.SectionHierarchy) == 0},
		{"notes", len(c.Notes) == 0},
		{"definitions", len(c.Definitions) == 0},
		{"examples", len(c.Examples) == 0},
		{"key_facts", len(c.KeyFacts) == 0},
	}
	for _, r := range required {
		if r.empty {
			return &FieldError{Kind: ErrCoreIncomplete, Path: r.path}
		}
	}
	var err error
	c.walkText(func(path, value string) bool {
		if token := forbiddenToken(value); token != "" {
			err = &FieldError{Kind: ErrCoreMarkup, Path: path, Token: token}
			return false
		}
		return true
	})
	return err
}

type textField struct{ path, value string }

// walkText visits every text field with its path until visit returns false.
func (c *KnowledgeCore) walkText(visit func(path, value string) bool) {
	fields := []textField{{"title", c.Title}, {"summary", c.Summary}}
	for i, v := range c.Concepts {
		fields = append(fields,
			textField{fmt.Sprintf("concepts[%d].name", i), v.Name},
			textField{fmt.Sprintf("concepts[%d].description", i), v.Description})
	}
	for i, s := range c.SectionHierarchy {
		fields = append(fields,
			textField{fmt.Sprintf("section_hierarchy[%d].title", i), s.Title},
			textField{fmt.Sprintf("section_hierarchy[%d].summary", i), s.Summary})
		for j, sub := range s.Subsections {
			fields = append(fields,
				textField{fmt.Sprintf("section_hierarchy[%d].subsections[%d].title", i, j), sub.Title},
				textField{fmt.Sprintf("section_hierarchy[%d].subsections[%d].summary", i, j), sub.Summary})
		}
	}
	for i, n := range c.Notes {
		fields = append(fields, textField{fmt.Sprintf("notes[%d].heading", i), n.Heading})
		for j, b := range n.Bullets {
			fields = append(fields, textField{fmt.Sprintf("notes[%d].bullets[%d]", i, j), b})
		}
	}
	for i, d := range c.Definitions {
		fields = append(fields,
			textField{fmt.Sprintf("definitions[%d].term", i), d.Term},
			textField{fmt.Sprintf("definitions[%d].definition", i), d.Definition},
			textField{fmt.Sprintf("definitions[%d].context", i), d.Context})
	}
	for i, e := range c.Examples {
		fields = append(fields,
			textField{fmt.Sprintf("examples[%d].description", i), e.Description},
			textField{fmt.Sprintf("examples[%d].relevance", i), e.Relevance})
	}
	for i, f := range c.KeyFacts {
		fields = append(fields,
			textField{fmt.Sprintf("key_facts[%d].fact", i), f.Fact},
			textField{fmt.Sprintf("key_facts[%d].category", i), f.Category})
	}
	for _, f := range fields {
		if !visit(f.path, f.value) {
			return
		}
	}
}

func forbiddenToken(value string) string {
	for _, token := range ForbiddenTokens {
		if strings.Contains(value, token) {
			return token
		}
	}
	return ""
}

// PlainText renders the core as labelled plain text for prompts.
func (c *KnowledgeCore) PlainText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nSummary: %s\n", c.Title, c.Summary)
	b.WriteString("\nConcepts:\n")
	for _, v := range c.Concepts {
		fmt.Fprintf(&b, "- %s (importance %d): %s\n", v.Name, v.ImportanceScore, v.Description)
	}
	b.WriteString("\nOutline:\n")
	for _, s := range c.SectionHierarchy {
		fmt.Fprintf(&b, "- %s: %s\n", s.Title, s.Summary)
		for _, sub := range s.Subsections {
			fmt.Fprintf(&b, "  - %s: %s\n", sub.Title, sub.Summary)
		}
	}
	b.WriteString("\nNotes:\n")
	for _, n := range c.Notes {
		fmt.Fprintf(&b, "%s\n", n.Heading)
		for _, bullet := range n.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
	}
	b.WriteString("\nDefinitions:\n")
	for _, d := range c.Definitions {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", d.Term, d.Definition, d.Context)
	}
	b.WriteString("\nExamples:\n")
	for _, e := range c.Examples {
		fmt.Fprintf(&b, "- %s (%s)\n", e.Description, e.Relevance)
	}
	b.WriteString("\nKey facts:\n")
	for _, f := range c.KeyFacts {
		fmt.Fprintf(&b, "- [%s] %s\n", f.Category, f.Fact)
	}
	return b.String()
}
