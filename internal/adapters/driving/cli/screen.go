package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var screenCmd = &cobra.Command{
	Use:   "screen [material]...",
	Short: "Screen materials for incompatible combinations",
	Long: `Runs the deterministic hazard rules over a set of materials.

Screening is rule-based and works offline: no retrieval and no
generative model is involved. Materials that can't be matched to an
ingested SDS are still screened by name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScreen,
}

func init() {
	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, args []string) error {
	if screenService == nil {
		return errors.New("screen service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	findings, unresolved, err := screenService.Screen(ctx, args)
	if err != nil {
		return fmt.Errorf("screening failed: %w", err)
	}

	if len(unresolved) > 0 {
		cmd.Printf("Not in the knowledge base (screened by name only): %s\n\n",
			strings.Join(unresolved, ", "))
	}

	if len(findings) == 0 {
		cmd.Println("No incompatibilities found by the rule set.")
		cmd.Println("Absence of a finding is not proof of safety; consult Section 10 of each SDS.")
		return nil
	}

	for _, f := range findings {
		cmd.Printf("[%s] %s\n", strings.ToUpper(string(f.Severity)), f.Message)
		if len(f.References) > 0 {
			refs := make([]string, len(f.References))
			for i, s := range f.References {
				refs[i] = fmt.Sprintf("%d", s)
			}
			cmd.Printf("        see SDS sections %s\n", strings.Join(refs, ", "))
		}
	}
	return nil
}
