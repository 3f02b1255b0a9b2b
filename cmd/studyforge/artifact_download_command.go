package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"studyforge/internal/artifact"
	"studyforge/internal/blob"
	"studyforge/internal/config"
	"studyforge/internal/store"
)

func newArtifactDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Copy an artifact's rendered file out of object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				renderings, err := st.Renderings(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rendering, ok := pickRendering(renderings, format)
				if !ok {
					return fmt.Errorf("artifact %s has no %srendering", args[0], formatLabel(format))
				}
				target := strings.TrimSpace(out)
				if target == "" {
					target = rendering.ArtifactID + "." + rendering.Format
				}

				blobs, err := blob.New(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				body, err := blobs.Get(cmd.Context(), rendering.StoragePath)
				if err != nil {
					return err
				}
				defer body.Close()
				written, err := writeFileAtomic(target, body)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes) from %s\n", target, written, blobs.Location(rendering.StoragePath))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Rendering format (pdf or pptx); defaults to the only one present")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Destination file (defaults to <id>.<format> in the current directory)")
	return cmd
}

func pickRendering(renderings []artifact.Rendering, format string) (artifact.Rendering, bool) {
	format = strings.ToLower(strings.TrimSpace(format))
	for _, r := range renderings {
		if format == "" || r.Format == format {
			return r, true
		}
	}
	return artifact.Rendering{}, false
}

func formatLabel(format string) string {
	if format == "" {
		return ""
	}
	return format + " "
}

func writeFileAtomic(path string, body io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".studyforge-download-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())
	written, err := io.Copy(tmp, body)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return written, nil
}
