package services

import (
	"bytes"
	"strings"
	"testing"

	"powersearch/models"
	"powersearch/utils"
)

func sampleProducts() []models.ScoredProduct {
	mk := func(title string, price *float64, rating *float64, deal float64, sources ...string) models.ScoredProduct {
		return models.ScoredProduct{
			ReconciledProduct: models.ReconciledProduct{
				Listing:     models.Listing{Title: title, Price: price, Rating: rating, Site: sources[0], Currency: "USD"},
				AllSources:  sources,
				SourceCount: len(sources),
			},
			DealScore: deal,
		}
	}
	return []models.ScoredProduct{
		mk("Widget A", models.Float(200), models.Float(4.9), 40, "amazon", "ebay"),
		mk("Widget B", models.Float(50), models.Float(4.5), 70, "amazon"),
		mk("Widget C", models.Float(120), models.Float(4.8), 10, "walmart"),
		mk("Widget D", models.Float(300), nil, 5, "ebay"),
		mk("Widget E", nil, models.Float(4.7), 20, "amazon"),
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleProducts())
	if r.TotalProducts != 5 {
		t.Errorf("TotalProducts: got %d, want 5", r.TotalProducts)
	}
	if r.PricedProducts != 4 {
		t.Errorf("PricedProducts: got %d, want 4", r.PricedProducts)
	}
	if r.BySource["amazon"] != 3 || r.BySource["ebay"] != 2 || r.BySource["walmart"] != 1 {
		t.Errorf("BySource: got %v", r.BySource)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleProducts())
	wantAvg := 167.50
	if r.AveragePrice != wantAvg {
		t.Errorf("AveragePrice: got %.2f, want %.2f", r.AveragePrice, wantAvg)
	}
	if r.MinPrice != 50 {
		t.Errorf("MinPrice: got %.2f, want 50", r.MinPrice)
	}
	if r.MaxPrice != 300 {
		t.Errorf("MaxPrice: got %.2f, want 300", r.MaxPrice)
	}
	if r.Cheapest == nil || r.Cheapest.Title != "Widget B" {
		t.Errorf("Cheapest: got %+v", r.Cheapest)
	}
	if r.BestDeal == nil || r.BestDeal.Title != "Widget B" {
		t.Errorf("BestDeal: got %+v", r.BestDeal)
	}
}

func TestInsightTopRated(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleProducts())
	if len(r.TopRated) != 4 {
		t.Errorf("TopRated len: got %d, want 4", len(r.TopRated))
	}
	if *r.TopRated[0].Rating != 4.9 {
		t.Errorf("TopRated[0].Rating: got %.2f, want 4.9", *r.TopRated[0].Rating)
	}
}

func TestInsightEmpty(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(nil)
	if r.TotalProducts != 0 || r.Cheapest != nil {
		t.Errorf("empty report: got %+v", r)
	}

	var buf bytes.Buffer
	svc.Print(&buf, r)
	if !strings.Contains(buf.String(), "No price data available") {
		t.Errorf("Print output missing empty-state text:\n%s", buf.String())
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleProducts()))
	out := buf.String()
	for _, want := range []string{"SEARCH INSIGHTS", "Widget B", "amazon"} {
		if !strings.Contains(out, want) {
			t.Errorf("Print output missing %q", want)
		}
	}
}
