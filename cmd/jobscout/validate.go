package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/jobscout/internal/wiring"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Resolve and check the configuration, then print it",
	Long: `Resolves flags, --config, the environment and defaults exactly as run and serve do,
validates the result and prints it as YAML with secrets masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadValidConfig(cmd, nil)
		if err != nil {
			return err
		}
		cfg.APIKey = mask(cfg.APIKey)
		cfg.GoogleSearchAPIKey = mask(cfg.GoogleSearchAPIKey)
		cfg.DatabaseURL = wiring.RedactURL(cfg.DatabaseURL)

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
