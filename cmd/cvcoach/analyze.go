package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cvcoach-backend/internal/analyses"
	"cvcoach-backend/internal/bootstrap"
	"cvcoach-backend/internal/documents"
	"cvcoach-backend/internal/wizard"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Validate and score a CV against a job description",
	Long:  "Validate both documents, then score the CV against the job description and structure the posting. Use --force to skip validation.",
	RunE:  runAnalyze,
}

var (
	analyzeCVPath string
	analyzeJDPath string
	analyzeForce  bool
	analyzeJSON   bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCVPath, "cv", "", "Path to the CV (pdf, docx, html or text)")
	analyzeCmd.Flags().StringVar(&analyzeJDPath, "jd", "", "Path to the job description")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "Skip document validation")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the raw analysis as JSON")
	_ = analyzeCmd.MarkFlagRequired("cv")
	_ = analyzeCmd.MarkFlagRequired("jd")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	ws, err := prepareWorkspace(ctx, app, analyzeCVPath, analyzeJDPath, analyzeForce)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"analysis":     ws.Analysis,
			"structuredJd": ws.StructuredJD,
		})
	}
	printAnalysis(out, ws)
	return nil
}

// prepareWorkspace loads both documents into a new workspace and runs the
// analysis synchronously. A validation warning is returned as an error.
func prepareWorkspace(ctx context.Context, app *bootstrap.App, cvPath, jdPath string, force bool) (wizard.Workspace, error) {
	cv, err := readDocument(ctx, app.Documents, cvPath)
	if err != nil {
		return wizard.Workspace{}, err
	}
	jd, err := readDocument(ctx, app.Documents, jdPath)
	if err != nil {
		return wizard.Workspace{}, err
	}
	return runWorkspace(ctx, app.Wizard, cv, jd, force)
}

func runWorkspace(ctx context.Context, svc *wizard.Service, cv, jd documents.Document, force bool) (wizard.Workspace, error) {
	ws, err := svc.Create(ctx, owner)
	if err != nil {
		return ws, err
	}
	if ws, err = svc.UploadCV(ctx, owner, ws.ID, cv); err != nil {
		return ws, err
	}
	if ws, err = svc.AttachJD(ctx, owner, ws.ID, jd); err != nil {
		return ws, err
	}

	if force {
		ws, err = svc.RunAnalysis(ctx, owner, ws.ID)
	} else {
		ws, err = svc.RunFull(ctx, owner, ws.ID)
	}
	if err != nil {
		if ws.Error != "" {
			return ws, fmt.Errorf("%s", ws.Error)
		}
		return ws, err
	}
	if ws.Warning != nil {
		return ws, fmt.Errorf("%s; re-run with --force to analyze anyway", warningText(*ws.Warning))
	}
	return ws, nil
}

func warningText(v analyses.ValidationResult) string {
	var parts []string
	if !v.IsCVValid {
		parts = append(parts, "CV rejected: "+reason(v.CVReason))
	}
	if !v.IsJDValid {
		parts = append(parts, "job description rejected: "+reason(v.JDReason))
	}
	return strings.Join(parts, "; ")
}

func reason(r *string) string {
	if r == nil || strings.TrimSpace(*r) == "" {
		return "no reason given"
	}
	return *r
}

func printAnalysis(w io.Writer, ws wizard.Workspace) {
	a := ws.Analysis
	if a == nil {
		fmt.Fprintln(w, "No analysis available.")
		return
	}
	fmt.Fprintf(w, "Suitability score: %d/100\n\n%s\n\n", a.SuitabilityScore, a.Summary)

	rows := []struct {
		name string
		d    analyses.SubScoreDetail
	}{
		{"Keyword Match", a.SubScores.KeywordMatch},
		{"Experience Fit", a.SubScores.ExperienceFit},
		{"Skill Coverage", a.SubScores.SkillCoverage},
		{"Quantification", a.SubScores.Quantification},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-15s %3d  %s\n", r.name, r.d.Score, r.d.ImprovementTip)
	}

	if len(a.Strengths) > 0 {
		fmt.Fprintln(w, "\nStrengths:")
		for _, s := range a.Strengths {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	if areas := a.CoachingAreas(); len(areas) > 0 {
		fmt.Fprintf(w, "\nCoaching focus: %s\n", strings.Join(areas, ", "))
	}
	if ws.StructuredJD != nil {
		fmt.Fprintf(w, "\n%s\n", ws.StructuredJD.Markdown())
	}
}
