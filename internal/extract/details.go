package extract

import (
	"strings"

	"go-jobscout/internal/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExtractDetails reads the full description, criteria and company link from
// a single posting page. Any failure yields an empty record.
func (e *Extractor) ExtractDetails(document string) (details models.DetailRecord) {
	defer func() {
		if r := recover(); r != nil {
			e.Log.Warnf("⚠️ Error parsing job details: %v", r)
			details = models.DetailRecord{}
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		e.Log.Warnf("⚠️ Error parsing job details: %v", err)
		return models.DetailRecord{}
	}

	criteria := criteriaTexts(doc)
	return models.DetailRecord{
		FullDescription: fullDescription(doc),
		JobCategory:     matchVocabulary(criteria, categoryVocabulary),
		ExperienceLevel: matchVocabulary(criteria, levelVocabulary),
		CompanyURL:      e.companyURL(doc),
	}
}

func fullDescription(doc *goquery.Document) string {
	for _, selector := range detailDescriptionSelectors {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		if d := textOf(el); d != "" {
			return d
		}
	}
	return ""
}

func criteriaTexts(doc *goquery.Document) []string {
	var out []string
	for _, selector := range detailCriteriaSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if t := textOf(s); t != "" {
				out = append(out, t)
			}
		})
	}
	return out
}

// matchVocabulary returns the first criteria entry mentioning any known term,
// title-cased.
func matchVocabulary(criteria, vocabulary []string) string {
	for _, c := range criteria {
		if containsAny(strings.ToLower(c), vocabulary) {
			return cases.Title(language.English).String(strings.ToLower(c))
		}
	}
	return ""
}

func (e *Extractor) companyURL(doc *goquery.Document) string {
	for _, selector := range companyLinkSelectors {
		if href, ok := doc.Find(selector).First().Attr("href"); ok {
			if u := e.ResolveURL(href); u != "" {
				return canonicalURL(u)
			}
		}
	}
	return ""
}
