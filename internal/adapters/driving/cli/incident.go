package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

var (
	incidentScenario  string
	incidentMaterials []string
	incidentRoute     string
	incidentAmount    string
)

var incidentCmd = &cobra.Command{
	Use:   "incident",
	Short: "Guided incident lookup",
	Long: `Answers a structured incident query without free-form typing.

The scenario selects which SDS sections are searched:
  first_aid      Section 4
  fire_response  Section 5
  spill_cleanup  Section 6

Useful when someone needs an answer fast and can't compose a question.`,
	RunE: runIncident,
}

func init() {
	incidentCmd.Flags().StringVarP(&incidentScenario, "scenario", "s", "",
		"incident scenario: first_aid, fire_response or spill_cleanup (required)")
	incidentCmd.Flags().StringSliceVarP(&incidentMaterials, "material", "m", nil,
		"material involved (repeatable, name or CAS number)")
	incidentCmd.Flags().StringVarP(&incidentRoute, "route", "r", "",
		"exposure route: skin, eye, inhalation or ingestion")
	incidentCmd.Flags().StringVarP(&incidentAmount, "amount", "a", "",
		"amount involved: small, large or unknown")
	_ = incidentCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(incidentCmd)
}

func runIncident(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	scenario := domain.Scenario(incidentScenario)
	if !scenario.IsValid() {
		return fmt.Errorf("unknown scenario %q", incidentScenario)
	}
	if len(incidentMaterials) == 0 {
		return errors.New("at least one --material is required")
	}

	amount := domain.AmountCategory(incidentAmount)
	if incidentAmount != "" && !amount.IsValid() {
		return fmt.Errorf("unknown amount %q", incidentAmount)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	answer, err := answerService.Ask(ctx, domain.Query{
		Materials:     incidentMaterials,
		Scenario:      scenario,
		ExposureRoute: incidentRoute,
		Amount:        amount,
	})
	if err != nil {
		return fmt.Errorf("incident lookup failed: %w", err)
	}

	printAnswer(cmd, answer)
	return nil
}
