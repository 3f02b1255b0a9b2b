package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"studyforge/internal/config"
	"studyforge/internal/language"
	"studyforge/internal/preflight"
	"studyforge/internal/store"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and check the studyforge configuration",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("%s already exists (pass --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("inspect %s: %w", target, err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}
			// The sample must load cleanly, otherwise every later command fails.
			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("sample config at %s does not load: %w", target, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Jobs, artifacts and logs will live under %s\n", cfg.Paths.DataDir)
			if cfg.LLM.APIKey == "" && cfg.LLM.Provider != config.ProviderOllama {
				fmt.Fprintln(out, "Set llm.api_key (or export STUDYFORGE_LLM_API_KEY) before running a worker.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func configTarget(raw string) (string, error) {
	if raw = strings.TrimSpace(raw); raw == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(raw)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and check the store, directories and LLM",
		Long: "Load the configuration, create missing directories, open the job store\n" +
			"and check the LLM provider. --offline skips the provider check.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source += " (not found, using defaults)"
			}
			fmt.Fprintf(out, "Config path: %s\n\n", source)
			fmt.Fprint(out, renderTable([]string{"Setting", "Value"}, settingsRows(cfg), nil))

			results := preflight.CheckDirectories(cfg)
			results = append(results, checkStoreAt(cmd, cfg))
			if offline {
				results = append(results, preflight.Result{Name: "LLM provider", Passed: true, Detail: "skipped (--offline)"})
			} else {
				results = append(results, preflight.CheckLLMFromConfig(cmd.Context(), cfg))
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, passLabel(out, r.Passed), r.Detail})
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, renderTable([]string{"Check", "Result", "Detail"}, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("configuration check failed: %s", failed[0].Name)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the LLM provider check")
	return cmd
}

func checkStoreAt(cmd *cobra.Command, cfg *config.Config) preflight.Result {
	st, err := store.Open(cfg)
	if err != nil {
		return preflight.Result{Name: "Job store", Detail: err.Error()}
	}
	defer st.Close()
	return preflight.CheckStore(cmd.Context(), st)
}

func settingsRows(cfg *config.Config) [][]string {
	llm := fmt.Sprintf("%s (%s)", cfg.LLM.Provider, cfg.LLM.Model)
	notify := "disabled"
	if cfg.Notifications.NtfyTopic != "" {
		notify = cfg.Notifications.NtfyTopic
	}
	return [][]string{
		{"Data dir", cfg.Paths.DataDir},
		{"Work dir", cfg.Paths.WorkDir},
		{"Log dir", cfg.Paths.LogDir},
		{"Store", cfg.Store.Path},
		{"Blob store", blobLocation(cfg.Blob)},
		{"LLM", llm},
		{"Language", language.DisplayName(cfg.Extract.Language)},
		{"Notifications", notify},
	}
}

func blobLocation(b config.Blob) string {
	if b.Backend == config.BlobBackendS3 {
		loc := "s3://" + b.Bucket
		if prefix := strings.Trim(b.Prefix, "/"); prefix != "" {
			loc += "/" + prefix
		}
		return loc
	}
	return b.Root
}
