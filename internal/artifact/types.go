package artifact

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type tags the kind of an artifact.
type Type string

// Ingested source types.
const (
	TypeYouTube Type = "youtube"
	TypeAudio   Type = "audio"
	TypeVideo   Type = "video"
	TypePDF     Type = "pdf"
	TypePPTX    Type = "pptx"
	TypeMD      Type = "md"
)

// Derived types.
const (
	TypeKnowledgeCore Type = "knowledge_core"
	TypeQuiz          Type = "quiz"
	TypeExam          Type = "exam"
	TypeNotes         Type = "notes"
	TypeSlides        Type = "slides"
	TypeFlashcards    Type = "flashcards"
)

// RelationDerivedFrom is the only edge relationship the pipeline writes.
const RelationDerivedFrom = "derived_from"

var sourceTypes = []Type{TypeYouTube, TypeAudio, TypeVideo, TypePDF, TypePPTX, TypeMD}

var generatedTypes = []Type{TypeQuiz, TypeExam, TypeNotes, TypeSlides, TypeFlashcards}

// SourceTypes lists the accepted ingest source types.
func SourceTypes() []Type { return append([]Type(nil), sourceTypes...) }

// GeneratedTypes lists the types a generate job may target.
func GeneratedTypes() []Type { return append([]Type(nil), generatedTypes...) }

// IsSource reports whether t is an ingested source type.
func (t Type) IsSource() bool { return containsType(sourceTypes, t) }

// IsGenerated reports whether t is a valid generation target.
func (t Type) IsGenerated() bool { return containsType(generatedTypes, t) }

// Valid reports whether t is any known artifact type.
func (t Type) Valid() bool { return t.IsSource() || t.IsGenerated() || t == TypeKnowledgeCore }

// RequiresBinary reports whether a committed artifact of type t must carry a
// rendered binary.
func (t Type) RequiresBinary() bool { return t == TypeExam || t == TypeSlides }

// ParseType normalizes raw into a known Type.
func ParseType(raw string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown artifact type %q", raw)
	}
	return t, nil
}

func containsType(list []Type, t Type) bool {
	for _, candidate := range list {
		if candidate == t {
			return true
		}
	}
	return false
}

// Content kinds.
const (
	KindSource    = "source"
	KindCore      = "core"
	KindGenerated = "generated"
)

// Content is the tagged union stored with every artifact. Exactly one of the
// kind-specific fields is populated, selected by Kind.
type Content struct {
	Kind string `json:"kind"`

	// kind=source
	SourceType   Type              `json:"source_type,omitempty"`
	SourceRef    string            `json:"source_ref,omitempty"`
	OriginalName string            `json:"original_name,omitempty"`
	Text         string            `json:"text,omitempty"`
	CharCount    int               `json:"char_count,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`

	// kind=core
	Core *KnowledgeCore `json:"core,omitempty"`

	// kind=generated
	Data   json.RawMessage `json:"data,omitempty"`
	Binary *BinaryPointer  `json:"binary,omitempty"`
}

// BinaryPointer locates an artifact's rendered file in object storage.
type BinaryPointer struct {
	Format      string `json:"format"`
	StoragePath string `json:"storage_path"`
}

// Validate checks that the populated fields match Kind.
func (c Content) Validate() error {
	switch c.Kind {
	case KindSource:
		if !c.SourceType.IsSource() {
			return fmt.Errorf("source content: invalid source type %q", c.SourceType)
		}
	case KindCore:
		if c.Core == nil {
			return fmt.Errorf("core content: knowledge core missing")
		}
	case KindGenerated:
		if len(c.Data) == 0 {
			return fmt.Errorf("generated content: data missing")
		}
	default:
		return fmt.Errorf("unknown content kind %q", c.Kind)
	}
	return nil
}

// Artifact is a persisted unit of content.
type Artifact struct {
	ID             string
	ProjectID      string
	Type           Type
	Content        Content
	CreatedByJobID string
	CreatedAt      time.Time
}

// Edge records that Child was derived from Parent.
type Edge struct {
	ParentID     string
	ChildID      string
	Relationship string
	ProjectID    string
	CreatedAt    time.Time
}

// Rendering is a binary file produced for an artifact.
type Rendering struct {
	ID          string
	ProjectID   string
	ArtifactID  string
	Format      string
	StoragePath string
	CreatedAt   time.Time
}

// Rendering formats.
const (
	FormatPDF  = "pdf"
	FormatPPTX = "pptx"
)

// BinaryFormat returns the rendering format required for t, or "".
func BinaryFormat(t Type) string {
	switch t {
	case TypeExam:
		return FormatPDF
	case TypeSlides:
		return FormatPPTX
	default:
		return ""
	}
}

// ObjectKey is the storage key for an artifact's binary. It depends only on
// the project and artifact ids so re-uploading overwrites instead of
// accumulating orphans.
func ObjectKey(projectID, artifactID, format string) string {
	return projectID + "/artifacts/" + artifactID + "." + format
}
