package adapters

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

var (
	// priceRegexp captures the first numeric run including separators
	priceRegexp = regexp.MustCompile(`\d[\d.,]*`)
	// thousandsComma matches "3,500" or "1,234,567" (comma as grouping only)
	thousandsComma = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	// thousandsDot matches "1.234.567" (European grouping, at least two groups)
	thousandsDot = regexp.MustCompile(`^\d{1,3}(\.\d{3}){2,}$`)
	ratingRegexp = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)
	digitsRegexp = regexp.MustCompile(`\d+`)
	// currencyPriceRegexp finds a price with a leading currency symbol in free text
	currencyPriceRegexp = regexp.MustCompile(`[$€£¥]\s*\d[\d.,]*`)
)

// ParsePrice extracts a price from display text, handling both US (1,234.56)
// and European (1.234,56) separators. Returns nil when nothing parses.
func ParsePrice(raw string) *float64 {
	m := priceRegexp.FindString(raw)
	if m == "" {
		return nil
	}
	m = strings.TrimRight(m, ".,")

	hasComma := strings.Contains(m, ",")
	hasDot := strings.Contains(m, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(m, ",") > strings.LastIndex(m, ".") {
			m = strings.ReplaceAll(m, ".", "")
			m = strings.ReplaceAll(m, ",", ".")
		} else {
			m = strings.ReplaceAll(m, ",", "")
		}
	case hasComma:
		if thousandsComma.MatchString(m) {
			m = strings.ReplaceAll(m, ",", "")
		} else {
			m = strings.ReplaceAll(m, ",", ".")
		}
	case hasDot:
		if thousandsDot.MatchString(m) {
			m = strings.ReplaceAll(m, ".", "")
		}
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// ParseRating extracts a 0.0–5.0 rating such as "4.5 out of 5 stars".
func ParseRating(raw string) *float64 {
	m := ratingRegexp.FindStringSubmatch(raw)
	if len(m) < 2 {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

// ParseCount extracts an integer count from text like "(1,234)".
func ParseCount(raw string) *int {
	digits := strings.Join(digitsRegexp.FindAllString(raw, -1), "")
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// Discount returns the discount percentage (one decimal) when original > price.
func Discount(price, original *float64) *float64 {
	if price == nil || original == nil || *original <= 0 || *price >= *original {
		return nil
	}
	d := math.Round((1-*price / *original)*1000) / 10
	return &d
}

// ListingID derives a stable identifier from title and URL.
func ListingID(title, productURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(title+"-"+productURL)).String()
}

// Resolve makes href absolute against base. Unparseable input is returned as-is.
func Resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}

// ImageURL picks the best image source from a node, preferring the last
// (highest resolution) srcset entry.
func ImageURL(item *goquery.Selection, base string) string {
	img := item.Find("img[srcset], img[data-srcset], img[src], img[data-src]").First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"srcset", "data-srcset", "src", "data-src"} {
		v, ok := img.Attr(attr)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if strings.HasSuffix(attr, "srcset") {
			parts := strings.Split(v, ",")
			fields := strings.Fields(parts[len(parts)-1])
			if len(fields) > 0 {
				return Resolve(base, fields[0])
			}
			continue
		}
		return Resolve(base, v)
	}
	return ""
}

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"USD", "USD"},
	{"EUR", "EUR"},
	{"GBP", "GBP"},
}

// DetectCurrency guesses the page currency from the first known symbol found.
func DetectCurrency(content string) string {
	for _, c := range currencySymbols {
		if strings.Contains(content, c.symbol) {
			return c.code
		}
	}
	return "USD"
}

// CleanText trims and collapses internal whitespace.
func CleanText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

func mentionsFreeShipping(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "free shipping") || strings.Contains(t, "free delivery")
}
