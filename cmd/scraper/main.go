package main

import (
	"fmt"
	"os"

	"go-jobscout/internal/browser"
	"go-jobscout/internal/config"
	"go-jobscout/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "jobscout",
	Short: "LinkedIn job search from the command line",
	Long:  "jobscout drives a real browser through LinkedIn's job search, collects the listings and saves them as JSON or CSV.",
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default $JOBSCOUT_CONFIG or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// setup loads config and builds the process logger.
func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Log)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return cfg, logger, nil
}

func newLauncher(cfg *config.Config, logger *logrus.Logger) *browser.PlaywrightLauncher {
	return &browser.PlaywrightLauncher{
		Headless:    cfg.Browser.Headless,
		CookiesPath: cfg.Browser.CookiesPath,
		Log:         logging.Component(logger, "playwright"),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}
