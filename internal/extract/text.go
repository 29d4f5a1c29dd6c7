package extract

import (
	"hash/fnv"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// fallbackIDBound keeps hash-derived identifiers short.
const fallbackIDBound = 1_000_000_000

// CleanText folds compatibility characters (non-breaking spaces, full-width
// forms) and collapses every whitespace run to a single space.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

//elements whose text reads as a separate line or cell
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"table": true, "tr": true, "td": true, "th": true, "dd": true, "dt": true,
}

// textOf is Selection.Text with a space at block boundaries, so paragraphs
// and list items do not run into each other. Scripts and styles are skipped.
func textOf(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch name := goquery.NodeName(c); {
			case name == "#text":
				b.WriteString(c.Text())
			case name == "script" || name == "style" || strings.HasPrefix(name, "#"):
			case blockElements[name]:
				b.WriteByte(' ')
				walk(c)
				b.WriteByte(' ')
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return CleanText(b.String())
}

// FallbackID derives a stable identifier from the visible listing fields:
// FNV-1a 64 of the lowercased, underscore-joined key, modulo 10^9.
func FallbackID(title, organization, location string) string {
	key := strings.ToLower(title + "_" + organization + "_" + location)
	key = strings.ReplaceAll(key, " ", "_")

	h := fnv.New64a()
	h.Write([]byte(key))
	return strconv.FormatUint(h.Sum64()%fallbackIDBound, 10)
}

// ResolveURL makes href absolute against the base origin. Absolute links are
// accepted only when they point at the same site; anything else yields "".
func (e *Extractor) ResolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() || ref.Host != "" {
		if !e.sameSite(ref.Hostname()) {
			return ""
		}
		if ref.Scheme == "" {
			ref.Scheme = e.BaseURL.Scheme
		}
		return ref.String()
	}
	return e.BaseURL.ResolveReference(ref).String()
}

func (e *Extractor) sameSite(host string) bool {
	host = strings.ToLower(host)
	domain := strings.TrimPrefix(strings.ToLower(e.BaseURL.Hostname()), "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
