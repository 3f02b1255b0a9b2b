package extract

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"studyforge/internal/logging"
	"studyforge/internal/services"
)

// YouTubeExtractor downloads the best audio stream with yt-dlp and hands it
// to the media transcriber.
type YouTubeExtractor struct {
	Binary string
	Media  *MediaExtractor
	Runner CommandRunner
	Logger *slog.Logger
}

func (y *YouTubeExtractor) Extract(ctx context.Context, ref string) (Result, error) {
	link, err := parseVideoURL(ref)
	if err != nil {
		return Result{}, err
	}
	binary := strings.TrimSpace(y.Binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	run := y.Runner
	if run == nil {
		run = execRunner
	}
	downloadDir, err := os.MkdirTemp(y.Media.workRoot(), "youtube-")
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(downloadDir)

	out, err := run(ctx, binary,
		"--no-playlist",
		"-f", "bestaudio/best",
		"--no-simulate",
		"--print", "title",
		"--print", "after_move:filepath",
		"-o", downloadDir+"/%(id)s.%(ext)s",
		link,
	)
	if err != nil {
		return Result{}, err
	}
	title, file := parsePrintOutput(string(out))
	if file == "" {
		return Result{}, services.Wrap(services.ErrExternalTool, "extract", "youtube", "yt-dlp reported no downloaded file", nil)
	}
	if y.Logger != nil {
		y.Logger.Info("youtube audio downloaded", logging.String("url", link), logging.String("title", title))
	}
	res, err := y.Media.transcribe(ctx, file)
	if err != nil {
		return Result{}, err
	}
	res.Metadata["url"] = link
	if title != "" {
		res.Metadata["title"] = title
	}
	return res, nil
}

func parseVideoURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", services.Wrap(services.ErrValidation, "extract", "youtube", "source_ref must be an http(s) URL", err)
	}
	return u.String(), nil
}

// parsePrintOutput reads the title line and the final file path line.
func parsePrintOutput(out string) (title, file string) {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	switch len(lines) {
	case 0:
		return "", ""
	case 1:
		return "", lines[0]
	default:
		return lines[0], lines[len(lines)-1]
	}
}
