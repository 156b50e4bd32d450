package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List ingested documents",
	Long:  `Lists every ingested SDS with its material link and ingestion diagnostics.`,
	RunE:  runDocuments,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(documentsCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	if docRegistry == nil {
		return errors.New("document registry not configured")
	}

	docs, err := docRegistry.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if documentsJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	for i := range docs {
		doc := &docs[i]
		cmd.Printf("%s\n", doc.Filename)
		cmd.Printf("  ID:       %s\n", doc.ID)
		cmd.Printf("  Material: %s\n", doc.MaterialID)
		if doc.Vendor != "" {
			cmd.Printf("  Vendor:   %s\n", doc.Vendor)
		}
		if doc.RevisionDate != "" {
			cmd.Printf("  Revision: %s\n", doc.RevisionDate)
		}
		cmd.Printf("  Pages:    %d", doc.PageCount)
		if doc.DroppedPages > 0 {
			cmd.Printf(" (%d dropped)", doc.DroppedPages)
		}
		cmd.Println()
		cmd.Printf("  Chunks:   %d\n", doc.ChunkCount)
		cmd.Printf("  Ingested: %s\n", doc.IngestedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}
