package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"powersearch/models"
	"powersearch/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises the products of one result page.
func (s *InsightService) Generate(products []models.ScoredProduct) *models.InsightReport {
	report := &models.InsightReport{
		BySource: make(map[string]int),
	}

	if len(products) == 0 {
		return report
	}

	report.TotalProducts = len(products)

	var rated []*models.ScoredProduct
	var total float64

	for i := range products {
		p := &products[i]
		for _, src := range p.AllSources {
			report.BySource[src]++
		}
		if p.Price != nil {
			report.PricedProducts++
			total += *p.Price
			if report.Cheapest == nil || *p.Price < *report.Cheapest.Price {
				report.Cheapest = p
			}
			if *p.Price > report.MaxPrice {
				report.MaxPrice = *p.Price
			}
		}
		if report.BestDeal == nil || p.DealScore > report.BestDeal.DealScore {
			report.BestDeal = p
		}
		if models.FloatOr(p.Rating, 0) > 0 {
			rated = append(rated, p)
		}
	}

	if report.PricedProducts > 0 {
		report.AveragePrice = round2(total / float64(report.PricedProducts))
		report.MinPrice = round2(*report.Cheapest.Price)
		report.MaxPrice = round2(report.MaxPrice)
	}

	// Top 5 by rating
	sort.SliceStable(rated, func(i, j int) bool {
		return *rated[i].Rating > *rated[j].Rating
	})
	if len(rated) > 5 {
		rated = rated[:5]
	}
	report.TopRated = rated

	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🛒 SEARCH INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Products on this page : \033[1m%d\033[0m\n", r.TotalProducts)
	fmt.Fprintf(w, "  With a price          : \033[1m%d\033[0m\n", r.PricedProducts)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedProducts > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.Cheapest != nil {
		fmt.Fprintf(w, "\033[1;33m  Cheapest Offer\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.Cheapest.Title, 50))
		fmt.Fprintf(w, "  Store : %s (%d sources)\n", r.Cheapest.Site, r.Cheapest.SourceCount)
		fmt.Fprintf(w, "  Price : \033[1;32m%.2f %s\033[0m\n", *r.Cheapest.Price, r.Cheapest.Currency)
		fmt.Fprintln(w)
	}

	if r.BestDeal != nil {
		fmt.Fprintf(w, "\033[1;33m  Best Deal\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.BestDeal.Title, 50))
		fmt.Fprintf(w, "  Deal score : \033[1;31m%.1f\033[0m\n", r.BestDeal.DealScore)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top 5 Highest Rated Products\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Fprintf(w, "  No rated products found\n")
	} else {
		for i, p := range r.TopRated {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%.1f ★\033[0m\n",
				i+1, truncate(p.Title, 38), *p.Rating)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Products by Store\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.BySource) == 0 {
		fmt.Fprintf(w, "  No store data\n")
	} else {
		type storeCount struct {
			store string
			count int
		}
		var stores []storeCount
		for st, cnt := range r.BySource {
			stores = append(stores, storeCount{st, cnt})
		}
		sort.Slice(stores, func(i, j int) bool {
			if stores[i].count != stores[j].count {
				return stores[i].count > stores[j].count
			}
			return stores[i].store < stores[j].store
		})
		for _, sc := range stores {
			bar := strings.Repeat("█", sc.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(sc.store, 28), bar, sc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
