package render_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"studyforge/internal/artifact"
	"studyforge/internal/blob"
	"studyforge/internal/render"
	"studyforge/internal/services"
	"studyforge/internal/testsupport"
)

func newRenderer(t *testing.T) (*render.Renderer, blob.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := blob.NewFileStore(cfg.Blob.Root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return render.New(store, cfg, nil), store
}

func TestExamPDFStructure(t *testing.T) {
	exam := testsupport.SampleExam(12)
	exam.Questions[0].Text = "Explain (briefly) the role of ATP \\ energy, café"
	data := render.ExamPDF(exam)

	if !bytes.HasPrefix(data, []byte("%PDF-1.4")) || !bytes.HasSuffix(data, []byte("%%EOF\n")) {
		t.Fatalf("missing PDF header or trailer")
	}
	if !bytes.Contains(data, []byte("(Answer Key)")) {
		t.Fatal("answer key heading missing")
	}
	if !bytes.Contains(data, []byte(`\(briefly\)`)) || !bytes.Contains(data, []byte(`ATP \\ energy`)) {
		t.Fatal("string delimiters not escaped")
	}

	// Every xref entry must point at the start of its object.
	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindSubmatch(data)
	if m == nil {
		t.Fatal("startxref missing")
	}
	xref, _ := strconv.Atoi(string(m[1]))
	table := strings.Split(string(data[xref:]), "\n")
	count, _ := strconv.Atoi(strings.Fields(table[1])[1])
	for i := 1; i < count; i++ {
		off, _ := strconv.Atoi(strings.Fields(table[2+i])[0])
		if want := fmt.Sprintf("%d 0 obj", i); !bytes.HasPrefix(data[off:], []byte(want)) {
			t.Fatalf("xref entry %d points at %q", i, data[off:off+12])
		}
	}
}

func TestRenderExamUploadsToObjectKey(t *testing.T) {
	r, store := newRenderer(t)
	rendering, err := r.Render(context.Background(), testsupport.SampleExam(10), "proj", "art-1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendering == nil || rendering.Format != artifact.FormatPDF || rendering.StoragePath != "proj/artifacts/art-1.pdf" {
		t.Fatalf("unexpected rendering %+v", rendering)
	}
	rc, err := store.Get(context.Background(), rendering.StoragePath)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	head := make([]byte, 8)
	if _, err := io.ReadFull(rc, head); err != nil || string(head) != "%PDF-1.4" {
		t.Fatalf("stored object is not a PDF: %q %v", head, err)
	}
}

func TestRenderSlidesThroughPandoc(t *testing.T) {
	r, _ := newRenderer(t)
	var deck string
	r.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != "pandoc" {
			return fmt.Errorf("unexpected binary %s", name)
		}
		input := args[len(args)-1]
		output := args[len(args)-2]
		data, err := os.ReadFile(input)
		if err != nil {
			return err
		}
		deck = string(data)
		return os.WriteFile(output, []byte("PK\x03\x04pptx"), 0o644)
	})
	slides := testsupport.SampleSlides(3)
	rendering, err := r.Render(context.Background(), slides, "proj", "deck-1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendering.StoragePath != "proj/artifacts/deck-1.pptx" {
		t.Fatalf("unexpected storage path %q", rendering.StoragePath)
	}
	if strings.Count(deck, "\n## ") != 3 || !strings.Contains(deck, "::: notes") {
		t.Fatalf("unexpected deck markdown:\n%s", deck)
	}
}

func TestRenderSlidesFailureReturnsNoRendering(t *testing.T) {
	r, _ := newRenderer(t)
	r.WithCommandRunner(func(context.Context, string, ...string) error { return errors.New("pandoc missing") })
	rendering, err := r.Render(context.Background(), testsupport.SampleSlides(3), "proj", "deck-2")
	if rendering != nil || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool failure and no rendering, got %+v %v", rendering, err)
	}
}

func TestRenderSkipsTypesWithoutBinary(t *testing.T) {
	r, _ := newRenderer(t)
	rendering, err := r.Render(context.Background(), testsupport.SampleNotes(), "proj", "notes-1")
	if rendering != nil || err != nil {
		t.Fatalf("expected nil rendering for notes, got %+v %v", rendering, err)
	}
}
