package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cvcoach-backend/internal/documents"
	"cvcoach-backend/internal/shared/config"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the text extracted from a PDF, DOCX, HTML or text file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var extractMeta bool

func init() {
	extractCmd.Flags().BoolVar(&extractMeta, "meta", false, "Print file metadata before the text")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	docs := documents.NewService(config.Load().MaxUploadBytes)
	doc, err := readDocument(cmd.Context(), docs, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if extractMeta {
		fmt.Fprintf(out, "file: %s\ntype: %s\nbytes: %d\n\n", doc.FileName, doc.MimeType, doc.SizeBytes)
	}
	fmt.Fprintln(out, doc.RawText)
	return nil
}
