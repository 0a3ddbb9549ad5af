package services

import (
	"regexp"
	"strings"

	"powersearch/models"
)

// knownBrands is matched case-insensitively against titles, prefix first.
var knownBrands = []string{
	"apple", "samsung", "sony", "lg", "microsoft", "dell", "hp", "lenovo",
	"asus", "acer", "toshiba", "philips", "huawei", "google", "xiaomi",
	"bosch", "nikon", "canon", "bose", "nintendo", "panasonic", "intel",
	"amd", "nike", "adidas", "dyson", "logitech", "seagate", "western digital",
}

// modelPatterns are tried in order; the first match wins.
var modelPatterns = []*regexp.Regexp{
	// MX500, GTX 1080
	regexp.MustCompile(`(?i)\b[A-Z]+[- ]?\d+[- ]?[A-Z]*\b`),
	// iPhone 13 Pro
	regexp.MustCompile(`(?i)\b[A-Z]+[- ]?\d+[- ]?(?:Pro|Max|Ultra|Plus)\b`),
	// 4090Ti
	regexp.MustCompile(`(?i)\b\d+[A-Z]+\b`),
}

// ExtractBrand returns the lowercased brand of a listing: the "brand"
// metadata when present, otherwise a known brand named in the title.
func ExtractBrand(l *models.Listing) string {
	if b := strings.TrimSpace(l.MetaString("brand")); b != "" {
		return strings.ToLower(b)
	}
	return brandFromTitle(l.Title)
}

func brandFromTitle(title string) string {
	lower := strings.ToLower(title)
	for _, b := range knownBrands {
		if strings.HasPrefix(lower, b+" ") {
			return b
		}
	}
	padded := " " + lower + " "
	for _, b := range knownBrands {
		if strings.Contains(padded, " "+b+" ") {
			return b
		}
	}
	return ""
}

// ExtractModel returns the lowercased model token found in title, or "".
func ExtractModel(title string) string {
	for _, re := range modelPatterns {
		if m := re.FindString(title); m != "" {
			return strings.ToLower(strings.TrimSpace(m))
		}
	}
	return ""
}

// CategoryFor returns the "category" metadata, else the first hint that
// appears in the title.
func CategoryFor(l *models.Listing, hints []string) string {
	if c := strings.TrimSpace(l.MetaString("category")); c != "" {
		return c
	}
	lower := strings.ToLower(l.Title)
	for _, h := range hints {
		if h != "" && strings.Contains(lower, strings.ToLower(h)) {
			return h
		}
	}
	return ""
}
