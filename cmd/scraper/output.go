package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-jobscout/internal/models"
	"go-jobscout/internal/store"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
)

const defaultOutputDir = "logs"

// defaultOutputPath is logs/job-search-YYYY-MM-DD.json for the given day.
func defaultOutputPath(now time.Time) string {
	return filepath.Join(defaultOutputDir, fmt.Sprintf("job-search-%s.json", now.Format("2006-01-02")))
}

func saveJSON(path string, jobs []models.JobRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal jobs to JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func saveCSV(path string, jobs []models.JobRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	rows := make([]store.ExportRow, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, store.NewExportRow(job))
	}
	if err := store.WriteCSV(f, rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// jobTable lays jobs out for pterm, newest discoveries shown relative to now.
func jobTable(jobs []models.JobRecord, now time.Time) pterm.TableData {
	data := pterm.TableData{{"#", "Title", "Organization", "Location", "Posted", "Found"}}
	for i, job := range jobs {
		found := ""
		if !job.DiscoveredAt.IsZero() {
			found = humanize.RelTime(job.DiscoveredAt, now, "ago", "from now")
		}
		data = append(data, []string{
			fmt.Sprint(i + 1),
			truncate(job.Title, 50),
			truncate(job.Organization, 30),
			truncate(job.Location, 30),
			job.PostedDate,
			found,
		})
	}
	return data
}

func printJobs(jobs []models.JobRecord) {
	if len(jobs) == 0 {
		pterm.Warning.Println("No jobs to show.")
		return
	}
	pterm.DefaultSection.Printfln("%s jobs", humanize.Comma(int64(len(jobs))))
	if err := pterm.DefaultTable.WithHasHeader().WithData(jobTable(jobs, time.Now())).Render(); err != nil {
		pterm.Error.Printfln("Failed to render table: %v", err)
	}
}
