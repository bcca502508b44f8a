package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/soilsense/internal/soil"
	"github.com/spf13/cobra"
)

// catalogCmd represents the catalog command.
var catalogCmd = &cobra.Command{
	Use:   "catalog [soil-type]",
	Short: "Show the crop recommendation catalog",
	Long: `Print the crops recommended for each soil type, or for a single type.

The built-in catalog is used unless catalog.path is configured or
--catalog is given.

Examples:
  soilsense catalog
  soilsense catalog black
  soilsense catalog --format json`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := GetConfig().Catalog.Path
		if cmd.Flags().Changed("catalog") {
			path, _ = cmd.Flags().GetString("catalog")
		}
		format, _ := cmd.Flags().GetString("format")

		cat, err := soil.LoadCatalog(path)
		if err != nil {
			return err
		}

		entries := cat.Entries()
		if len(args) == 1 {
			t, err := soil.ParseType(args[0])
			if err != nil {
				return fmt.Errorf("%w (known types: %s)", err, strings.Join(soil.Names(), ", "))
			}
			entries = entries[t.Index() : t.Index()+1]
		}

		out, err := formatCatalog(entries, format)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

func formatCatalog(entries []soil.Entry, format string) (string, error) {
	switch format {
	case outputFormatJSON:
		b, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(b), nil
	case outputFormatText, "":
		var sb strings.Builder
		for i, e := range entries {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "%s:\n", e.Type)
			for _, c := range e.Crops {
				fmt.Fprintf(&sb, "  - %s\n", c)
			}
		}
		return strings.TrimRight(sb.String(), "\n"), nil
	default:
		return "", fmt.Errorf("invalid output format: %s (must be one of: text, json)", format)
	}
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json)")
	catalogCmd.Flags().String("catalog", "", "catalog file (YAML or TOML)")
}
