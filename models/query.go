package models

import "strings"

// SortMode selects the ordering of the final result list.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
	SortRating    SortMode = "rating"
	SortDiscount  SortMode = "discount"
)

const (
	DefaultLimit  = 20
	MaxLimit      = 100
	DefaultRegion = "global"
)

// ParseSortMode maps unrecognised values to relevance.
func ParseSortMode(s string) SortMode {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SortPriceAsc, SortPriceDesc, SortRating, SortDiscount, SortRelevance:
		return m
	default:
		return SortRelevance
	}
}

// Filters are the optional narrowing criteria applied after the price bounds.
type Filters struct {
	Brands       []string `json:"brands,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	Sources      []string `json:"sources,omitempty"`
	MinRating    *float64 `json:"min_rating,omitempty"`
	FreeShipping bool     `json:"free_shipping,omitempty"`
	MinDealScore *float64 `json:"min_deal_score,omitempty"`
}

// SearchQuery is one search request.
type SearchQuery struct {
	Text     string   `json:"query"`
	Region   string   `json:"region"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	Sort     SortMode `json:"sort"`
	Page     int      `json:"page"`
	Limit    int      `json:"limit"`
	Filters  Filters  `json:"filters"`
}

// Normalize applies defaults so that Page >= 1 and 1 <= Limit <= MaxLimit.
func (q SearchQuery) Normalize() SearchQuery {
	q.Text = strings.TrimSpace(q.Text)
	q.Region = strings.ToLower(strings.TrimSpace(q.Region))
	if q.Region == "" {
		q.Region = DefaultRegion
	}
	q.Sort = ParseSortMode(string(q.Sort))
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// QueryHints carries what the preprocessor learned about the query.
type QueryHints struct {
	Brands     []string `json:"brands,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// PreparedQuery is the preprocessor output.
type PreparedQuery struct {
	Original  string
	Rewritten string
	Hints     QueryHints
}
