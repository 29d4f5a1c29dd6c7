package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	labelToday     = "Today"
	labelMonthsAgo = "1+ months ago"
)

var (
	numberRe = regexp.MustCompile(`\d+`)

	// scanned over the whole card when no date element exists
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s+(day|days|week|weeks|month|months)\s+ago`),
		regexp.MustCompile(`(?i)\b(today|yesterday)\b`),
		regexp.MustCompile(`(?i)\d+\s+(hour|hours|minute|minutes)\s+ago`),
	}
)

// NormalizePostedDate turns relative posting text into a YYYY-MM-DD date
// computed from now, or a canonical label. Unrecognised text is returned
// lowercased.
//
//	"3 days ago"   -> now-3d
//	"1 week ago"   -> now-7d
//	"2 months ago" -> "1+ months ago"
//	"5 hours ago"  -> "Today"
func NormalizePostedDate(raw string, now time.Time) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}

	if strings.Contains(text, "ago") {
		switch {
		case strings.Contains(text, "hour"), strings.Contains(text, "minute"):
			return labelToday
		case strings.Contains(text, "day"):
			if n, ok := leadingNumber(text); ok {
				return now.AddDate(0, 0, -n).Format(dateLayout)
			}
		case strings.Contains(text, "week"):
			if n, ok := leadingNumber(text); ok {
				return now.AddDate(0, 0, -7*n).Format(dateLayout)
			}
		case strings.Contains(text, "month"):
			return labelMonthsAgo
		}
	}

	switch {
	case strings.Contains(text, "today"):
		return now.Format(dateLayout)
	case strings.Contains(text, "yesterday"):
		return now.AddDate(0, 0, -1).Format(dateLayout)
	}
	return text
}

func leadingNumber(s string) (int, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// scanPostedDate looks for relative-time phrases anywhere in text.
func scanPostedDate(text string) string {
	for _, re := range datePatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}
