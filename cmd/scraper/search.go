package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-jobscout/internal/filter"
	"go-jobscout/internal/logging"
	"go-jobscout/internal/models"
	"go-jobscout/internal/notify"
	"go-jobscout/internal/scraper/linkedin"
	"go-jobscout/internal/store"
	"go-jobscout/internal/worker"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one LinkedIn job search and save the results",
	Long:  "Search LinkedIn jobs by title and location, optionally narrowed by job type and experience level, and save every listing found.",
	RunE:  runSearch,
}

var (
	searchReq        models.SearchRequest
	searchOut        string
	searchCSV        string
	searchQuiet      bool
	searchNoTelegram bool
	searchTimeout    time.Duration
	searchExclude    []string
	searchMaxAgeDays int
)

func init() {
	searchCmd.Flags().StringVarP(&searchReq.Title, "title", "t", "", "Job title or keywords")
	searchCmd.Flags().StringVarP(&searchReq.Location, "location", "l", "", "Location")
	searchCmd.Flags().StringVar(&searchReq.Category, "category", models.FilterAll, "Job type filter (Full-time, Part-time, Contract, Internship...)")
	searchCmd.Flags().StringVar(&searchReq.Experience, "experience", models.FilterAll, "Experience level filter (Entry level, Mid-Senior level...)")
	searchCmd.Flags().IntVarP(&searchReq.MaxPages, "pages", "p", 0, "Result pages to scrape (default from config)")
	searchCmd.Flags().StringVarP(&searchOut, "out", "o", "", "JSON output path (default logs/job-search-YYYY-MM-DD.json)")
	searchCmd.Flags().StringVar(&searchCSV, "csv", "", "Also write a CSV export to this path")
	searchCmd.Flags().BoolVarP(&searchQuiet, "quiet", "q", false, "Hide the progress bar and results table")
	searchCmd.Flags().BoolVar(&searchNoTelegram, "no-telegram", false, "Do not send results to Telegram even when configured")
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", 10*time.Minute, "Give up after this long (0 disables)")
	searchCmd.Flags().StringSliceVar(&searchExclude, "exclude", nil, "Drop jobs whose title contains any of these words")
	searchCmd.Flags().IntVar(&searchMaxAgeDays, "max-age-days", 0, "Drop jobs posted longer ago than this many days")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	log := logging.Component(logger, "cli")

	//setup context with signal and timeout
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, searchTimeout)
		defer cancel()
	}

	req := searchReq
	if req.MaxPages <= 0 {
		req.MaxPages = cfg.Scraper.MaxPages
	}

	notifiers := notify.Multi{notify.NewLog(logging.Component(logger, "run"))}
	if !searchQuiet {
		notifiers = append(notifiers, notify.NewTerminal(os.Stderr))
	}
	if cfg.Telegram.Enabled() && !searchNoTelegram {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logging.Component(logger, "telegram"))
		if err != nil {
			log.Warnf("⚠️ Telegram disabled: %v", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	searcher := linkedin.NewFromConfig(cfg, newLauncher(cfg, logger), logger)
	st := store.New()
	runner := worker.New(searcher, notifiers, worker.WithStore(st), worker.WithLogger(logging.Component(logger, "worker")))
	defer runner.Cleanup()

	if _, err := runner.Start(ctx, req); err != nil {
		return err
	}
	runner.Wait()

	jobs := filter.Apply(st.All(), filter.Criteria{Exclude: searchExclude, MaxAgeDays: searchMaxAgeDays})
	if dropped := st.Len() - len(jobs); dropped > 0 {
		log.Infof("🧹 Filtered out %d jobs", dropped)
	}
	if !searchQuiet {
		printJobs(jobs)
	}
	if len(jobs) == 0 {
		log.Info("ℹ️ No jobs to save.")
		return nil
	}

	out := searchOut
	if out == "" {
		out = defaultOutputPath(time.Now())
	}
	if err := saveJSON(out, jobs); err != nil {
		return err
	}
	pterm.Success.Printfln("Results saved to %s", out)

	if searchCSV != "" {
		if err := saveCSV(searchCSV, jobs); err != nil {
			return err
		}
		pterm.Success.Printfln("CSV export saved to %s", searchCSV)
	}
	return nil
}
