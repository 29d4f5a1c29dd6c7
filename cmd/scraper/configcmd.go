package main

import (
	"fmt"

	"go-jobscout/internal/config"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Load the config file, .env and environment overrides, validate them, and print the result as YAML with secrets masked.",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// masked returns a copy of cfg that is safe to print.
func masked(cfg *config.Config) config.Config {
	out := *cfg
	if len(out.Telegram.Token) > 6 {
		out.Telegram.Token = out.Telegram.Token[:6] + "..."
	} else if out.Telegram.Token != "" {
		out.Telegram.Token = "***"
	}
	return out
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(masked(cfg))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	pterm.Success.Println("Config is valid")
	fmt.Print(string(data))
	return nil
}
