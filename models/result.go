package models

// FacetBucket is a single named count.
type FacetBucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FacetSet holds the count breakdowns over the filtered result set.
type FacetSet struct {
	Brands      []FacetBucket `json:"brands"`
	Categories  []FacetBucket `json:"categories"`
	PriceRanges []FacetBucket `json:"price_ranges"`
	Sources     []FacetBucket `json:"sources"`
	Ratings     []FacetBucket `json:"ratings"`
}

// SiteStatus reports how one site behaved during the fetch stage.
type SiteStatus struct {
	Site     string `json:"site"`
	OK       bool   `json:"ok"`
	Attempts int    `json:"attempts"`
	Count    int    `json:"count"`
	Error    string `json:"error,omitempty"`
}

// Diagnostics describes what happened inside the pipeline.
type Diagnostics struct {
	SitesQueried      int          `json:"sites_queried"`
	SitesSucceeded    int          `json:"sites_succeeded"`
	Sites             []SiteStatus `json:"sites,omitempty"`
	FallbackUsed      bool         `json:"fallback_used"`
	ListingsFetched   int          `json:"listings_fetched"`
	ValidationDropped int          `json:"validation_dropped"`
	Clusters          int          `json:"clusters"`
	Strategy          string       `json:"strategy,omitempty"`
}

// SearchResult is the response envelope of a search.
type SearchResult struct {
	RequestID    string          `json:"request_id"`
	Products     []ScoredProduct `json:"products"`
	TotalResults int             `json:"total_results"`
	Page         int             `json:"page"`
	Limit        int             `json:"limit"`
	SearchTime   float64         `json:"search_time"`
	Query        string          `json:"query"`
	Rewritten    string          `json:"rewritten_query,omitempty"`
	Error        string          `json:"error,omitempty"`
	Facets       *FacetSet       `json:"facets,omitempty"`
	Diagnostics  Diagnostics     `json:"diagnostics"`

	// RawListings is kept for CLI export only and never serialised.
	RawListings []Listing `json:"-"`
}

// InsightReport holds summary statistics over one search result page.
type InsightReport struct {
	TotalProducts  int
	PricedProducts int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	Cheapest       *ScoredProduct
	BestDeal       *ScoredProduct
	TopRated       []*ScoredProduct
	BySource       map[string]int
}
