// Package artifact defines the artifact data model and the rules that govern
// how artifacts derive from one another.
//
// Key pieces:
//   - Type, Artifact, Edge, Rendering, and the tagged Content union persisted
//     by the store.
//   - Graph, the immutable legality map consulted before any generation work,
//     plus the root in-degree rule enforced on every bundle.
//   - KnowledgeCore and its plain-text validation gate.
//   - Typed generated models (quiz, exam, flashcards, notes, slides) with
//     their minimum-content thresholds and deterministic conversions.
//   - KnowledgeContext, the input shape handed to generation and merging.
package artifact
