package extract

import (
	"context"
	"strconv"
	"strings"
)

// PDFExtractor shells out to pdftotext in layout mode.
type PDFExtractor struct {
	Binary string
	Runner CommandRunner
}

func (p *PDFExtractor) Extract(ctx context.Context, ref string) (Result, error) {
	path, err := localFile(ref)
	if err != nil {
		return Result{}, err
	}
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "pdftotext"
	}
	run := p.Runner
	if run == nil {
		run = execRunner
	}
	out, err := run(ctx, binary, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return Result{}, err
	}
	text := string(out)
	pages := strings.Count(text, "\f")
	if !strings.HasSuffix(strings.TrimRight(text, "\n"), "\f") && strings.TrimSpace(text) != "" {
		pages++
	}
	return Result{
		Text:     strings.ReplaceAll(text, "\f", "\n\n"),
		Metadata: map[string]string{"pages": strconv.Itoa(pages)},
	}, nil
}
