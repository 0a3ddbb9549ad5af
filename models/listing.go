package models

// Listing is one raw product record scraped from a single storefront.
// It is produced by a site adapter and is not modified afterwards.
type Listing struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Price              *float64       `json:"price"`
	Currency           string         `json:"currency"`
	OriginalPrice      *float64       `json:"original_price,omitempty"`
	DiscountPercentage *float64       `json:"discount_percentage,omitempty"`
	Rating             *float64       `json:"rating,omitempty"`
	ReviewCount        *int           `json:"review_count,omitempty"`
	FreeShipping       bool           `json:"free_shipping"`
	Image              string         `json:"image,omitempty"`
	URL                string         `json:"url"`
	Site               string         `json:"site"`
	InStock            bool           `json:"in_stock"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// MetaString returns a string metadata value, or "" when absent.
func (l *Listing) MetaString(key string) string {
	if l.Metadata == nil {
		return ""
	}
	s, _ := l.Metadata[key].(string)
	return s
}

// SimilarListing is a compact view of another cluster member.
type SimilarListing struct {
	Site         string   `json:"site"`
	Price        *float64 `json:"price"`
	URL          string   `json:"url"`
	FreeShipping bool     `json:"free_shipping"`
}

// ReconciledProduct is a cluster of listings merged into one record.
// Price always equals the lowest member price.
type ReconciledProduct struct {
	Listing
	AllSources      []string         `json:"all_sources"`
	SourceCount     int              `json:"source_count"`
	SimilarListings []SimilarListing `json:"similar_listings,omitempty"`
	PriceDifference float64          `json:"price_difference"`
}

// ScoredProduct is a reconciled product with its ranking scores.
type ScoredProduct struct {
	ReconciledProduct
	DealScore      float64 `json:"deal_score"`
	Confidence     float64 `json:"confidence"`
	RelevanceScore float64 `json:"relevance_score"`
	Category       string  `json:"category,omitempty"`
	Brand          string  `json:"brand,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// FloatOr dereferences p, returning def when nil.
func FloatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// IntOr dereferences p, returning def when nil.
func IntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
