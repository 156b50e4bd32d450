package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

var askMaterials []string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a chemical safety question",
	Long: `Answers a free-form safety question from ingested SDS content.

Every factual sentence of the answer carries a citation back to a
specific SDS section and page. When the indexed sheets don't cover the
question, the assistant refuses and points at the sections to read
instead of guessing.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askMaterials, "material", "m", nil,
		"material involved (repeatable, name or CAS number)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	answer, err := answerService.Ask(ctx, domain.Query{
		Text:      args[0],
		Materials: askMaterials,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	printAnswer(cmd, answer)
	return nil
}

// printAnswer renders a finished answer. Body already carries any
// hazard findings ahead of the advice, so they are not repeated here.
func printAnswer(cmd *cobra.Command, answer domain.Answer) {
	cmd.Println(answer.Body)

	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, c := range answer.Citations {
			cmd.Printf("  [%d] %s, Section %d, page %d\n", i+1, c.MaterialName, c.Section, c.Page)
		}
	}

	if len(answer.SeeAlso) > 0 {
		cmd.Println()
		cmd.Println("See also:")
		for _, c := range answer.SeeAlso {
			cmd.Printf("  %s, Section %d, page %d\n", c.MaterialName, c.Section, c.Page)
		}
	}

	if answer.Refusal && answer.Diagnostic != "" {
		cmd.Println()
		cmd.Printf("(no answer: %s)\n", answer.Diagnostic)
	}
}
