package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

var htmlTagPattern = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9-]*(\s[^<>]*)?/?>|<!--`)

// MarkdownExtractor reads a Markdown file, lifting YAML frontmatter into
// metadata and removing inline HTML.
type MarkdownExtractor struct{}

func (MarkdownExtractor) Extract(_ context.Context, ref string) (Result, error) {
	path, err := localFile(ref)
	if err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return parseMarkdown(data)
}

func parseMarkdown(data []byte) (Result, error) {
	res := Result{Metadata: map[string]string{}}
	body, front, err := splitFrontmatter(data)
	if err != nil {
		return Result{}, err
	}
	for key, value := range front {
		switch v := value.(type) {
		case string:
			res.Metadata[key] = strings.TrimSpace(v)
		case int, int64, float64, bool:
			res.Metadata[key] = fmt.Sprint(v)
		}
	}
	text := string(body)
	if htmlTagPattern.MatchString(text) {
		text, err = stripHTML(text)
		if err != nil {
			return Result{}, err
		}
	}
	res.Text = text
	return res, nil
}

// splitFrontmatter separates a leading "---" delimited YAML block.
func splitFrontmatter(data []byte) ([]byte, map[string]any, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return data, nil, nil
	}
	rest := normalized[4:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return data, nil, nil
	}
	block := rest[:end]
	body := rest[end+4:]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	front := map[string]any{}
	if err := yaml.Unmarshal(block, &front); err != nil {
		return nil, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return body, front, nil
}

// stripHTML drops tags, comments, scripts and styles while keeping the
// surrounding Markdown text and decoding entities.
func stripHTML(text string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("parse inline html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	return doc.Text(), nil
}
