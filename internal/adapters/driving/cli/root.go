// Package cli implements the command-line interface. Commands are a
// thin presentation layer over the driving ports; all behaviour lives
// in the core services.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/labsafe/sdsassist/internal/core/ports/driven"
	"github.com/labsafe/sdsassist/internal/core/ports/driving"
	"github.com/labsafe/sdsassist/internal/core/services"
	"github.com/labsafe/sdsassist/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected by main before Execute. Commands check for nil so
// tests can run individual commands without full wiring.
var (
	ingestService driving.IngestService
	answerService driving.AnswerService
	screenService driving.ScreenService
	aliasIndex    *services.AliasIndex
	docRegistry   driven.DocumentRegistry
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sdsassist",
	Short: "Safety data sheet assistant for laboratory chemical questions",
	Long: `sdsassist ingests safety data sheet PDFs into a local knowledge base
and answers chemical safety questions with cited, grounded advice.

Answers come only from ingested SDS content. Incompatible-mixture
screening is deterministic and runs before any generative step.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Deps bundles everything the commands need.
type Deps struct {
	Ingest   driving.IngestService
	Answer   driving.AnswerService
	Screen   driving.ScreenService
	Aliases  *services.AliasIndex
	Registry driven.DocumentRegistry
}

// SetServices injects the services used by the commands.
func SetServices(deps Deps) {
	ingestService = deps.Ingest
	answerService = deps.Answer
	screenService = deps.Screen
	aliasIndex = deps.Aliases
	docRegistry = deps.Registry
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
