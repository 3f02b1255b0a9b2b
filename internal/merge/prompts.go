package merge

import (
	"fmt"
	"strings"
)

func summarySystemPrompt(opts Options) string {
	return fmt.Sprintf(`You compress study material into a compact summary.
Return a JSON object with keys:
  "title": short title of the material,
  "concepts": at most %d key concept names,
  "facts": at most %d key facts, each one sentence,
  "abstract": 2-3 sentences, at most %d characters.
Use plain text only. Do not invent content that is not in the material.`, opts.MaxConcepts, opts.MaxFacts, opts.AbstractChars)
}

func mergeSystemPrompt(opts Options) string {
	return fmt.Sprintf(`You merge summaries of several study sources into one.
Return a JSON object with keys:
  "concepts": deduplicated concept names across all sources,
  "facts": deduplicated key facts across all sources,
  "abstract": one unified abstract of 2-3 sentences, at most %d characters,
  "conflict_notes": a short description of every place where the sources
    contradict each other, naming the sources, or "" when they agree.
Never resolve a contradiction by picking a side; report it in conflict_notes.`, opts.AbstractChars)
}

func mergeUserPrompt(summaries []Summary) string {
	var b strings.Builder
	for i, s := range summaries {
		fmt.Fprintf(&b, "Source %d: %s\n", i+1, s.Title)
		fmt.Fprintf(&b, "Abstract: %s\n", s.Abstract)
		if len(s.Concepts) > 0 {
			fmt.Fprintf(&b, "Concepts:\n- %s\n", strings.Join(s.Concepts, "\n- "))
		}
		if len(s.Facts) > 0 {
			fmt.Fprintf(&b, "Facts:\n- %s\n", strings.Join(s.Facts, "\n- "))
		}
		if s.ConflictNotes != "" {
			fmt.Fprintf(&b, "Known conflicts: %s\n", s.ConflictNotes)
		}
		b.WriteString("\n")
	}
	return b.String()
}
