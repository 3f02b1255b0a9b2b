package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"studyforge/internal/artifact"
	"studyforge/internal/config"
	"studyforge/internal/handler"
	"studyforge/internal/store"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Enqueue and inspect jobs",
	}
	cmd.AddCommand(newJobIngestCommand(ctx))
	cmd.AddCommand(newJobGenerateCommand(ctx))
	cmd.AddCommand(newJobListCommand(ctx))
	cmd.AddCommand(newJobShowCommand(ctx))
	return cmd
}

func newJobIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		projectID  string
		sourceType string
		ref        string
		name       string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Queue a source for extraction into a knowledge core",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := artifact.ParseType(sourceType)
			if err != nil || !t.IsSource() {
				return fmt.Errorf("--type must be one of %s", joinTypes(artifact.SourceTypes()))
			}
			ref = strings.TrimSpace(ref)
			if ref == "" {
				return fmt.Errorf("--ref is required")
			}
			if t != artifact.TypeYouTube {
				resolved, err := resolveLocalRef(ref)
				if err != nil {
					return err
				}
				ref = resolved
			}
			if strings.TrimSpace(name) == "" {
				name = filepath.Base(ref)
			}
			payload := handler.IngestPayload{SourceType: string(t), SourceRef: ref, OriginalName: name}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				job, err := st.Enqueue(cmd.Context(), projectID, store.JobIngest, payload)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued ingest job %s\n", job.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project identifier")
	cmd.Flags().StringVarP(&sourceType, "type", "t", "", "Source type (youtube, audio, video, pdf, pptx, md)")
	cmd.Flags().StringVarP(&ref, "ref", "r", "", "Source path or URL")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Original name shown for the source")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("ref")
	return cmd
}

func resolveLocalRef(ref string) (string, error) {
	expanded, err := config.ExpandPath(ref)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("source %s: %w", ref, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source %s is a directory", ref)
	}
	return abs, nil
}

func newJobGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		projectID string
		sources   []string
		target    string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Queue generation of a study artifact from existing artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := artifact.ParseType(target)
			if err != nil || !t.IsGenerated() {
				return fmt.Errorf("--target must be one of %s", joinTypes(artifact.GeneratedTypes()))
			}
			if len(sources) == 0 {
				return fmt.Errorf("at least one --source is required")
			}
			payload := handler.GeneratePayload{TargetType: string(t)}
			if len(sources) == 1 {
				payload.SourceArtifactID = sources[0]
			} else {
				payload.SourceArtifactIDs = sources
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				job, err := st.Enqueue(cmd.Context(), projectID, store.JobGenerate, payload)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued generate job %s\n", job.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project identifier")
	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "Source artifact id (repeatable)")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target type (quiz, exam, flashcards, notes, slides)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var (
		projectID string
		statuses  []string
		limit     uint64
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.JobFilter{ProjectID: projectID, Limit: limit}
			for _, raw := range statuses {
				status, ok := store.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				jobs, err := st.ListJobs(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					views := make([]jobView, 0, len(jobs))
					for _, job := range jobs {
						views = append(views, newJobView(job))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.ID,
						job.ProjectID,
						string(job.Type),
						statusLabel(out, job.Status),
						job.CreatedAt.Local().Format(time.DateTime),
						truncate(job.ErrorMessage, 60),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Project", "Type", "Status", "Created", "Error"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Only jobs for this project")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only jobs with these statuses")
	cmd.Flags().Uint64Var(&limit, "limit", 50, "Maximum number of jobs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job with its payload and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				job, err := st.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", args[0])
				}
				if asJSON {
					return writeJSON(cmd, newJobView(job))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:       %s\n", job.ID)
				fmt.Fprintf(out, "Project:  %s\n", job.ProjectID)
				fmt.Fprintf(out, "Type:     %s\n", job.Type)
				fmt.Fprintf(out, "Status:   %s\n", statusLabel(out, job.Status))
				if job.WorkerID != "" {
					fmt.Fprintf(out, "Worker:   %s\n", job.WorkerID)
				}
				fmt.Fprintf(out, "Created:  %s\n", job.CreatedAt.Local().Format(time.DateTime))
				if job.StartedAt != nil {
					fmt.Fprintf(out, "Started:  %s\n", job.StartedAt.Local().Format(time.DateTime))
				}
				if job.FinishedAt != nil {
					fmt.Fprintf(out, "Finished: %s\n", job.FinishedAt.Local().Format(time.DateTime))
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:    %s\n", job.ErrorMessage)
				}
				fmt.Fprintf(out, "\nPayload:\n%s\n", prettyJSON(job.Payload))
				if len(job.Result) > 0 {
					fmt.Fprintf(out, "\nResult:\n%s\n", prettyJSON(job.Result))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

type jobView struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Payload      any        `json:"payload,omitempty"`
	Result       any        `json:"result,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	WorkerID     string     `json:"worker_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func newJobView(job *store.Job) jobView {
	view := jobView{
		ID:           job.ID,
		ProjectID:    job.ProjectID,
		Type:         string(job.Type),
		Status:       string(job.Status),
		ErrorMessage: job.ErrorMessage,
		WorkerID:     job.WorkerID,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
	}
	if len(job.Payload) > 0 {
		view.Payload = job.Payload
	}
	if len(job.Result) > 0 {
		view.Result = job.Result
	}
	return view
}

func joinTypes(types []artifact.Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
