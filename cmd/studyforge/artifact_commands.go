package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"studyforge/internal/artifact"
	"studyforge/internal/config"
	"studyforge/internal/store"
)

func newArtifactCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "artifact",
		Aliases: []string{"artifacts"},
		Short:   "Inspect artifacts and their lineage",
	}
	cmd.AddCommand(newArtifactListCommand(ctx))
	cmd.AddCommand(newArtifactShowCommand(ctx))
	cmd.AddCommand(newArtifactLineageCommand(ctx))
	cmd.AddCommand(newArtifactDownloadCommand(ctx))
	return cmd
}

func newArtifactListCommand(ctx *commandContext) *cobra.Command {
	var (
		projectID string
		types     []string
		jobID     string
		limit     uint64
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artifacts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.ArtifactFilter{ProjectID: projectID, CreatedByJobID: jobID, Limit: limit}
			for _, raw := range types {
				t, err := artifact.ParseType(raw)
				if err != nil {
					return err
				}
				filter.Types = append(filter.Types, t)
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				artifacts, err := st.ListArtifacts(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					views := make([]artifactView, 0, len(artifacts))
					for _, a := range artifacts {
						views = append(views, newArtifactView(a))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(artifacts) == 0 {
					fmt.Fprintln(out, "No artifacts")
					return nil
				}
				rows := make([][]string, 0, len(artifacts))
				for _, a := range artifacts {
					rows = append(rows, []string{
						a.ID,
						a.ProjectID,
						string(a.Type),
						truncate(artifactTitle(a), 48),
						a.CreatedByJobID,
						a.CreatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Project", "Type", "Title", "Job", "Created"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Only artifacts for this project")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Only artifacts of these types")
	cmd.Flags().StringVar(&jobID, "job", "", "Only artifacts created by this job")
	cmd.Flags().Uint64Var(&limit, "limit", 50, "Maximum number of artifacts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newArtifactShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one artifact with its edges and renderings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				a, err := st.GetArtifact(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a == nil {
					return fmt.Errorf("artifact %s not found", args[0])
				}
				parents, err := st.ParentEdges(cmd.Context(), a.ID)
				if err != nil {
					return err
				}
				children, err := st.ChildEdges(cmd.Context(), a.ID)
				if err != nil {
					return err
				}
				renderings, err := st.Renderings(cmd.Context(), a.ID)
				if err != nil {
					return err
				}
				if asJSON {
					view := newArtifactView(a)
					view.Content = &a.Content
					for _, e := range parents {
						view.Parents = append(view.Parents, e.ParentID)
					}
					for _, e := range children {
						view.Children = append(view.Children, e.ChildID)
					}
					for _, r := range renderings {
						view.Renderings = append(view.Renderings, renderingView{Format: r.Format, StoragePath: r.StoragePath})
					}
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:       %s\n", a.ID)
				fmt.Fprintf(out, "Project:  %s\n", a.ProjectID)
				fmt.Fprintf(out, "Type:     %s\n", a.Type)
				fmt.Fprintf(out, "Title:    %s\n", artifactTitle(a))
				fmt.Fprintf(out, "Job:      %s\n", a.CreatedByJobID)
				fmt.Fprintf(out, "Created:  %s\n", a.CreatedAt.Local().Format(time.DateTime))
				printEdges(out, "Derived from", parents, func(e artifact.Edge) string { return e.ParentID })
				printEdges(out, "Derivatives", children, func(e artifact.Edge) string { return e.ChildID })
				if len(renderings) > 0 {
					fmt.Fprintln(out, "\nRenderings:")
					for _, r := range renderings {
						fmt.Fprintf(out, "  %s  %s\n", r.Format, r.StoragePath)
					}
				}
				raw, err := json.Marshal(a.Content)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nContent:\n%s\n", prettyJSON(raw))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printEdges(out io.Writer, label string, edges []artifact.Edge, id func(artifact.Edge) string) {
	if len(edges) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", label)
	for _, e := range edges {
		fmt.Fprintf(out, "  %s\n", id(e))
	}
}

func newArtifactLineageCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "lineage <id>",
		Short: "Show every ancestor of an artifact, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				a, err := st.GetArtifact(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a == nil {
					return fmt.Errorf("artifact %s not found", args[0])
				}
				lineage, err := st.Ancestors(cmd.Context(), a.ID)
				if err != nil {
					return err
				}
				if asJSON {
					views := make([]lineageView, 0, len(lineage))
					for _, entry := range lineage {
						views = append(views, lineageView{Depth: entry.Depth, artifactView: newArtifactView(&entry.Artifact)})
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(lineage) == 0 {
					fmt.Fprintf(out, "Artifact %s has no ancestors\n", a.ID)
					return nil
				}
				rows := make([][]string, 0, len(lineage))
				for _, entry := range lineage {
					rows = append(rows, []string{
						strconv.Itoa(entry.Depth),
						entry.Artifact.ID,
						string(entry.Artifact.Type),
						truncate(artifactTitle(&entry.Artifact), 48),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Depth", "ID", "Type", "Title"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

// artifactTitle picks a human label from whichever content kind is set.
func artifactTitle(a *artifact.Artifact) string {
	switch a.Content.Kind {
	case artifact.KindSource:
		if title := a.Content.Metadata["title"]; title != "" {
			return title
		}
		return a.Content.OriginalName
	case artifact.KindCore:
		if a.Content.Core != nil {
			return a.Content.Core.Title
		}
	case artifact.KindGenerated:
		model, err := artifact.DecodeModel(a.Type, a.Content.Data)
		if err == nil {
			return model.DisplayTitle()
		}
	}
	return ""
}

type artifactView struct {
	ID             string            `json:"id"`
	ProjectID      string            `json:"project_id"`
	Type           string            `json:"type"`
	Title          string            `json:"title,omitempty"`
	CreatedByJobID string            `json:"created_by_job_id"`
	CreatedAt      time.Time         `json:"created_at"`
	Content        *artifact.Content `json:"content,omitempty"`
	Parents        []string          `json:"parents,omitempty"`
	Children       []string          `json:"children,omitempty"`
	Renderings     []renderingView   `json:"renderings,omitempty"`
}

type renderingView struct {
	Format      string `json:"format"`
	StoragePath string `json:"storage_path"`
}

type lineageView struct {
	Depth int `json:"depth"`
	artifactView
}

func newArtifactView(a *artifact.Artifact) artifactView {
	return artifactView{
		ID:             a.ID,
		ProjectID:      a.ProjectID,
		Type:           string(a.Type),
		Title:          artifactTitle(a),
		CreatedByJobID: a.CreatedByJobID,
		CreatedAt:      a.CreatedAt,
	}
}
