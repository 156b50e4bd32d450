package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

var materialsCmd = &cobra.Command{
	Use:   "materials",
	Short: "Manage the material catalogue",
	Long:  `List canonical materials, resolve surface names, and curate aliases.`,
}

var materialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List canonical materials",
	RunE:  runMaterialsList,
}

var materialsResolveCmd = &cobra.Command{
	Use:   "resolve [name]",
	Short: "Resolve a surface name to a canonical material",
	Args:  cobra.ExactArgs(1),
	RunE:  runMaterialsResolve,
}

var materialsAliasCmd = &cobra.Command{
	Use:   "alias [material-id] [alias]",
	Short: "Add an alias to a material",
	Long: `Records an additional surface name for a material, such as a local
nickname or a vendor product code. Fails if the alias already belongs to
a different material.`,
	Args: cobra.ExactArgs(2),
	RunE: runMaterialsAlias,
}

// aliasSource is a flag for the alias command.
var aliasSource string

func init() {
	materialsAliasCmd.Flags().StringVarP(&aliasSource, "source", "s", "synonym",
		"alias source: synonym, trade_name or product_code")

	materialsCmd.AddCommand(materialsListCmd)
	materialsCmd.AddCommand(materialsResolveCmd)
	materialsCmd.AddCommand(materialsAliasCmd)
	rootCmd.AddCommand(materialsCmd)
}

func runMaterialsList(cmd *cobra.Command, _ []string) error {
	if aliasIndex == nil {
		return errors.New("alias index not configured")
	}

	materials, err := aliasIndex.Materials(context.Background())
	if err != nil {
		return fmt.Errorf("listing materials: %w", err)
	}

	if len(materials) == 0 {
		cmd.Println("No materials ingested yet.")
		return nil
	}

	for i := range materials {
		printMaterial(cmd, &materials[i])
		cmd.Println()
	}
	cmd.Printf("Total: %d materials\n", len(materials))
	return nil
}

func runMaterialsResolve(cmd *cobra.Command, args []string) error {
	if aliasIndex == nil {
		return errors.New("alias index not configured")
	}

	material, err := aliasIndex.Resolve(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("resolving %q: %w", args[0], err)
	}
	if material == nil {
		cmd.Printf("No material matches %q.\n", args[0])
		return nil
	}

	printMaterial(cmd, material)
	return nil
}

func runMaterialsAlias(cmd *cobra.Command, args []string) error {
	if aliasIndex == nil {
		return errors.New("alias index not configured")
	}

	materialID, alias := args[0], args[1]
	source := domain.AliasSource(aliasSource)
	if !source.IsValid() {
		return fmt.Errorf("unknown alias source %q", aliasSource)
	}

	if err := aliasIndex.AddAlias(context.Background(), materialID, alias, source); err != nil {
		return fmt.Errorf("adding alias: %w", err)
	}

	cmd.Printf("Alias %q added to %s.\n", alias, materialID)
	return nil
}

func printMaterial(cmd *cobra.Command, m *domain.Material) {
	cmd.Printf("%s\n", m.DisplayName)
	cmd.Printf("  ID:  %s\n", m.ID)
	if m.CAS != "" {
		cmd.Printf("  CAS: %s\n", m.CAS)
	}
	if len(m.HazardClasses) > 0 {
		cmd.Print("  Hazards:")
		for _, h := range m.HazardClasses {
			cmd.Printf(" %s", h)
		}
		cmd.Println()
	}
	if len(m.Aliases) > 0 {
		cmd.Println("  Aliases:")
		for _, a := range m.Aliases {
			cmd.Printf("    %s (%s)\n", a.Text, a.Source)
		}
	}
}
