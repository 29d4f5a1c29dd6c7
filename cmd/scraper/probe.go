package main

import (
	"fmt"

	"go-jobscout/internal/browser"
	"go-jobscout/internal/extract"
	"go-jobscout/internal/logging"
	"go-jobscout/internal/models"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Open one page in the browser and show what the extractor sees",
	Long:  "Load a results or job detail page with the configured browser session, report blocking, and print the listings or details parsed from it. Useful when LinkedIn markup changes.",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

var (
	probeDetails    bool
	probeScreenshot bool
)

func init() {
	probeCmd.Flags().BoolVarP(&probeDetails, "details", "d", false, "Treat the page as a job detail page")
	probeCmd.Flags().BoolVar(&probeScreenshot, "screenshot", false, "Save a screenshot to the configured screenshot dir")

	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	url := args[0]

	session := browser.NewSession(newLauncher(cfg, logger), browser.OptionsFromConfig(cfg),
		browser.WithLogger(logging.Component(logger, "browser")))
	defer session.Teardown()

	pterm.Info.Printfln("Opening %s", url)
	if !session.NavigateWithRetry(ctx, url, -1) {
		return fmt.Errorf("could not load %s", url)
	}
	if probeScreenshot {
		if path, err := session.Capture("probe", "📸 Probe screenshot"); err != nil {
			pterm.Warning.Printfln("Screenshot failed: %v", err)
		} else if path != "" {
			pterm.Success.Printfln("Screenshot saved to %s", path)
		}
	}

	document := session.PageSourceSafe(ctx)
	if indicator, blocked := browser.DetectBlocking(document); blocked {
		pterm.Error.Printfln("Page looks blocked (matched %q)", indicator)
		return nil
	}

	extractor := extract.New(cfg.Scraper.BaseURL, logging.Component(logger, "extract"))
	if probeDetails {
		printDetails(extractor.ExtractDetails(document))
		return nil
	}
	printJobs(extractor.ParseListings(document))
	return nil
}

func printDetails(d models.DetailRecord) {
	if d.Empty() {
		pterm.Warning.Println("No job details found on this page.")
		return
	}
	data := pterm.TableData{
		{"Field", "Value"},
		{"Job type", d.JobCategory},
		{"Experience", d.ExperienceLevel},
		{"Company", d.CompanyURL},
		{"Description", truncate(d.FullDescription, 200)},
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Printfln("Failed to render table: %v", err)
	}
}
