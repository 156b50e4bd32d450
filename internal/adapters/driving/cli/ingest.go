package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/labsafe/sdsassist/internal/core/ports/driving"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest SDS PDFs into the knowledge base",
	Long: `Ingests one PDF file or every PDF under a directory.

Each document is segmented into its numbered SDS sections, attached to a
canonical material and indexed for retrieval. Re-ingesting identical
bytes is a no-op; a newer revision of a material's SDS replaces the old
one.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if info.IsDir() {
		return runIngestDir(ctx, cmd, path)
	}

	report, err := ingestService.IngestFile(ctx, path)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestReport(cmd, report)
	return nil
}

func runIngestDir(ctx context.Context, cmd *cobra.Command, dir string) error {
	batch, err := ingestService.IngestDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	for i := range batch.Reports {
		printIngestReport(cmd, &batch.Reports[i])
	}

	if len(batch.Failed) > 0 {
		paths := make([]string, 0, len(batch.Failed))
		for p := range batch.Failed {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		cmd.Println()
		cmd.Printf("Failed: %d\n", len(batch.Failed))
		for _, p := range paths {
			cmd.Printf("  %s: %v\n", p, batch.Failed[p])
		}
	}

	cmd.Println()
	cmd.Printf("Ingested %d of %d documents.\n",
		len(batch.Reports), len(batch.Reports)+len(batch.Failed))
	return nil
}

func printIngestReport(cmd *cobra.Command, report *driving.IngestReport) {
	if report.Skipped {
		cmd.Printf("%s: already ingested, skipped\n", report.Document.Filename)
		return
	}

	cmd.Printf("%s: %s", report.Document.Filename, report.Material.DisplayName)
	if report.Material.CAS != "" {
		cmd.Printf(" (CAS %s)", report.Material.CAS)
	}
	cmd.Printf(", %d chunks", report.Chunks)
	if report.Replaced {
		cmd.Print(", replaced older revision")
	}
	cmd.Println()

	if report.Document.DroppedPages > 0 {
		cmd.Printf("  warning: %d of %d pages yielded no text\n",
			report.Document.DroppedPages, report.Document.PageCount)
	}
	if report.Conflict != "" {
		cmd.Printf("  conflict: %s\n", report.Conflict)
	}
}
