package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	yearOnlyRegex = regexp.MustCompile(`\b(20\d{2})\b`)
)

// monthsAgoAge is the age assumed for the "1+ months ago" label.
const monthsAgoAge = 30 * 24 * time.Hour

// PostedWithin reports whether a normalized posted date falls inside window.
// Unknown formats are kept.
func PostedWithin(posted string, now time.Time, window time.Duration) bool {
	posted = strings.TrimSpace(posted)
	switch strings.ToLower(posted) {
	case "", "n/a", "recent", "today":
		return true
	case "1+ months ago":
		return monthsAgoAge <= window
	}

	//ISO format "2026-01-27" or 2026-01-27T...
	if isoDateRegex.MatchString(posted) {
		jobDate, err := time.ParseInLocation("2006-01-02", posted[:10], now.Location())
		if err == nil {
			return within(now, jobDate, window)
		}
	}

	//dd/mm/yyyy
	if strings.Contains(posted, "/") {
		parts := strings.Split(posted, "/")
		if len(parts) >= 3 {
			day, _ := strconv.Atoi(parts[0])
			month, _ := strconv.Atoi(parts[1])
			year, _ := strconv.Atoi(parts[2])
			jobDate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
			return within(now, jobDate, window)
		}
	}

	//year only fallback
	if match := yearOnlyRegex.FindStringSubmatch(posted); match != nil {
		year, _ := strconv.Atoi(match[1])
		return year == now.Year() || year == now.Year()-1
	}

	return true
}

func within(now, jobDate time.Time, window time.Duration) bool {
	diff := now.Sub(jobDate)
	if diff > window {
		return false
	}
	//future dates beyond 2 days are bogus (timezone slack)
	return diff >= -2*24*time.Hour
}
