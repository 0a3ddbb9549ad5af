package adapters

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

func builtins() []Adapter {
	return []Adapter{
		{Site: "amazon", BuildURL: amazonURLBuilder("www.amazon.com"), Extract: ExtractAmazon},
		{Site: "amazon.co.uk", GeoHint: "gb", BuildURL: amazonURLBuilder("www.amazon.co.uk"), Extract: ExtractAmazon},
		{Site: "amazon.de", GeoHint: "de", BuildURL: amazonURLBuilder("www.amazon.de"), Extract: ExtractAmazon},
		{Site: "ebay", BuildURL: ebayURLBuilder, Extract: ExtractEbay},
		{Site: "walmart", BuildURL: walmartURLBuilder},
		{Site: "aliexpress", BuildURL: aliexpressURLBuilder},
		{Site: "rakuten", GeoHint: "jp", BuildURL: rakutenURLBuilder},
		{Site: "skroutz", GeoHint: "gr", BuildURL: skroutzURLBuilder},
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func amazonURLBuilder(host string) URLBuilder {
	return func(query string, minPrice, maxPrice *float64, page int) string {
		v := url.Values{}
		v.Set("k", query)
		v.Set("page", strconv.Itoa(page))
		// price refinement is expressed in cents and needs both bounds
		if minPrice != nil && maxPrice != nil {
			v.Set("rh", fmt.Sprintf("p_36:%d-%d",
				int64(math.Round(*minPrice*100)), int64(math.Round(*maxPrice*100))))
		}
		return "https://" + host + "/s?" + v.Encode()
	}
}

func ebayURLBuilder(query string, minPrice, maxPrice *float64, page int) string {
	v := url.Values{}
	v.Set("_nkw", query)
	v.Set("_pgn", strconv.Itoa(page))
	if minPrice != nil {
		v.Set("_udlo", formatPrice(*minPrice))
	}
	if maxPrice != nil {
		v.Set("_udhi", formatPrice(*maxPrice))
	}
	return "https://www.ebay.com/sch/i.html?" + v.Encode()
}

func walmartURLBuilder(query string, minPrice, maxPrice *float64, page int) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("page", strconv.Itoa(page))
	if minPrice != nil {
		v.Set("min_price", formatPrice(*minPrice))
	}
	if maxPrice != nil {
		v.Set("max_price", formatPrice(*maxPrice))
	}
	return "https://www.walmart.com/search?" + v.Encode()
}

func aliexpressURLBuilder(query string, minPrice, maxPrice *float64, page int) string {
	v := url.Values{}
	v.Set("SearchText", query)
	v.Set("page", strconv.Itoa(page))
	if minPrice != nil {
		v.Set("minPrice", formatPrice(*minPrice))
	}
	if maxPrice != nil {
		v.Set("maxPrice", formatPrice(*maxPrice))
	}
	return "https://www.aliexpress.com/wholesale?" + v.Encode()
}

func rakutenURLBuilder(query string, _, _ *float64, page int) string {
	return "https://search.rakuten.co.jp/search/mall/" + url.PathEscape(query) + "/?p=" + strconv.Itoa(page)
}

func skroutzURLBuilder(query string, _, _ *float64, page int) string {
	v := url.Values{}
	v.Set("keyphrase", query)
	v.Set("page", strconv.Itoa(page))
	return "https://www.skroutz.gr/search?" + v.Encode()
}

func genericURLBuilder(site string) URLBuilder {
	host := "www." + site + ".com"
	if strings.Contains(site, ".") {
		host = "www." + site
	}
	return func(query string, _, _ *float64, _ int) string {
		return "https://" + host + "/search?q=" + url.QueryEscape(query)
	}
}

// SitesForRegion returns the storefronts to query for a region code.
func SitesForRegion(region string) []string {
	region = strings.ToLower(strings.TrimSpace(region))
	var sites []string

	if region == "global" || region == "us" {
		sites = append(sites, "amazon", "ebay", "walmart", "aliexpress")
	}
	if region == "uk" || region == "global" {
		sites = append(sites, "amazon.co.uk")
	}
	if region == "de" || region == "eu" || region == "global" {
		sites = append(sites, "amazon.de")
	}
	if region == "jp" || region == "global" {
		sites = append(sites, "rakuten")
	}
	if region == "gr" {
		sites = append(sites, "skroutz")
	}

	if len(sites) == 0 {
		sites = []string{"amazon", "ebay"}
	}
	return sites
}

// Region is a selectable search region.
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Regions is the catalogue exposed to clients.
var Regions = []Region{
	{"global", "Global"},
	{"us", "United States"},
	{"eu", "Europe"},
	{"uk", "United Kingdom"},
	{"de", "Germany"},
	{"fr", "France"},
	{"cn", "China"},
	{"jp", "Japan"},
	{"au", "Australia"},
	{"ar", "Argentina"},
	{"in", "India"},
	{"kr", "South Korea"},
	{"br", "Brazil"},
	{"ru", "Russia"},
	{"gr", "Greece"},
}

// Store describes a storefront and the regions it serves.
type Store struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Regions []string `json:"regions"`
}

// Stores is the storefront catalogue exposed to clients.
var Stores = []Store{
	{"amazon", "Amazon", []string{"global", "us", "uk", "de", "fr", "jp"}},
	{"ebay", "eBay", []string{"global", "us", "uk", "de"}},
	{"walmart", "Walmart", []string{"us"}},
	{"bestbuy", "Best Buy", []string{"us", "ca"}},
	{"target", "Target", []string{"us"}},
	{"newegg", "Newegg", []string{"us", "ca"}},
	{"bh", "B&H Photo", []string{"us", "global"}},
	{"costco", "Costco", []string{"us", "ca", "uk"}},
	{"homedepot", "Home Depot", []string{"us", "ca"}},
	{"aliexpress", "AliExpress", []string{"global"}},
	{"rakuten", "Rakuten", []string{"jp"}},
	{"otto", "Otto", []string{"de"}},
	{"jd", "JD.com", []string{"cn"}},
	{"skroutz", "Skroutz", []string{"gr"}},
	{"kotsovolos", "Kotsovolos", []string{"gr"}},
}
