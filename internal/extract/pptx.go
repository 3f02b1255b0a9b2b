package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PPTXExtractor reads text runs from each slide in deck order.
type PPTXExtractor struct{}

func (PPTXExtractor) Extract(_ context.Context, ref string) (Result, error) {
	path, err := localFile(ref)
	if err != nil {
		return Result{}, err
	}
	reader, err := zip.OpenReader(path)
	if err != nil {
		return Result{}, fmt.Errorf("open pptx: %w", err)
	}
	defer reader.Close()
	return readDeck(&reader.Reader)
}

type slidePart struct {
	index int
	file  *zip.File
}

func readDeck(r *zip.Reader) (Result, error) {
	var parts []slidePart
	for _, f := range r.File {
		m := slidePartPattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		parts = append(parts, slidePart{index: n, file: f})
	}
	if len(parts) == 0 {
		return Result{}, fmt.Errorf("pptx has no slides")
	}
	slices.SortFunc(parts, func(a, b slidePart) int { return a.index - b.index })

	var b strings.Builder
	for _, part := range parts {
		paragraphs, err := slideParagraphs(part.file)
		if err != nil {
			return Result{}, fmt.Errorf("slide %d: %w", part.index, err)
		}
		if len(paragraphs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "Slide %d\n%s\n\n", part.index, strings.Join(paragraphs, "\n"))
	}
	return Result{
		Text:     b.String(),
		Metadata: map[string]string{"slides": strconv.Itoa(len(parts))},
	}, nil
}

// slideParagraphs collects DrawingML <a:t> runs, one string per <a:p>.
func slideParagraphs(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
