package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagFeaturesOutput string

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Print the active feature keyword table as TOML",
	Long: `Print the table used to decide whether an advisory's feature is enabled in a
device configuration. Edit the output and pass it back with --feature-map to
tune relevance filtering.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fm, err := loadFeatureMap(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagFeaturesOutput != "" {
			f, err := os.Create(flagFeaturesOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		if err := fm.Encode(out); err != nil {
			return fmt.Errorf("failed to write feature map: %w", err)
		}
		return nil
	},
}

func init() {
	featuresCmd.Flags().StringVarP(&flagFeaturesOutput, "output", "o", "", "Output file path (default: stdout)")
}
