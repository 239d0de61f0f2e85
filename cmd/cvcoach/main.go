// Package main provides cvcoach, a terminal front end for the CV coach: it
// extracts documents, runs the analysis and hosts a coaching session.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cvcoach-backend/internal/bootstrap"
	"cvcoach-backend/internal/documents"
	"cvcoach-backend/internal/shared/config"
	"cvcoach-backend/internal/shared/telemetry"
)

// owner scopes every CLI workspace; the process holds only one user.
const owner = "cli"

var rootCmd = &cobra.Command{
	Use:           "cvcoach",
	Short:         "Score a CV against a job description and coach improvements",
	Long:          "cvcoach extracts CV and job description text, asks the configured model for a suitability analysis and runs an interactive coaching session whose improvement log can be exported.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if !verbose {
			telemetry.SetLogger(nil)
			return nil
		}
		return telemetry.Init("dev")
	}
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	telemetry.Sync()
}

func loadApp(ctx context.Context) (*bootstrap.App, error) {
	app, err := bootstrap.BuildCore(ctx, config.Load())
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return app, nil
}

// readDocument extracts the text of a local file the same way an upload is
// handled.
func readDocument(ctx context.Context, docs *documents.Service, path string) (documents.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return documents.Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := docs.FromUpload(ctx, filepath.Base(path), "", f)
	if err != nil {
		return documents.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return doc, nil
}
