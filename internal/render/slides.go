package render

import (
	"fmt"
	"strings"

	"studyforge/internal/artifact"
)

// SlidesMarkdown writes a pandoc slide deck: one level-2 heading per slide
// and speaker notes in a notes div.
func SlidesMarkdown(s *artifact.Slides) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\ntitle: %q\n", s.Title)
	if s.AudienceLevel != "" {
		fmt.Fprintf(&b, "subtitle: %q\n", "Audience: "+s.AudienceLevel)
	}
	b.WriteString("---\n\n")
	for _, slide := range s.Slides {
		fmt.Fprintf(&b, "## %s\n\n", oneLine(slide.Heading))
		if idea := strings.TrimSpace(slide.MainIdea); idea != "" {
			fmt.Fprintf(&b, "%s\n\n", idea)
		}
		for _, bullet := range slide.BulletPoints {
			if bullet = oneLine(bullet); bullet != "" {
				fmt.Fprintf(&b, "- %s\n", bullet)
			}
		}
		b.WriteString("\n")
		if notes := strings.TrimSpace(slide.SpeakerNotes); notes != "" || slide.VisualCue != "" {
			b.WriteString("::: notes\n")
			if notes != "" {
				b.WriteString(notes + "\n")
			}
			if cue := strings.TrimSpace(slide.VisualCue); cue != "" {
				b.WriteString("\nVisual: " + cue + "\n")
			}
			b.WriteString(":::\n\n")
		}
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
