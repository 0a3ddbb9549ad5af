package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"powersearch/models"
	"powersearch/utils"
)

func acmeListings() []models.Listing {
	return []models.Listing{
		{ID: "a1", Site: "a", Title: "Acme X100 Widget", Price: models.Float(21.50), URL: "https://a.example/1"},
		{ID: "b1", Site: "b", Title: "Acme X100 Widget (New)", Price: models.Float(19.99), URL: "https://b.example/1"},
		{ID: "c1", Site: "c", Title: "ACME X100 WIDGET", Price: models.Float(18.00), URL: "https://c.example/1"},
	}
}

func TestReconcileMergesNearDuplicates(t *testing.T) {
	r := NewReconciler(nil, utils.NewNopLogger())
	products, strategy := r.Reconcile(context.Background(), acmeListings())

	if strategy != StrategyFuzzy {
		t.Errorf("strategy: got %q, want fuzzy", strategy)
	}
	if len(products) != 1 {
		t.Fatalf("products: got %d, want 1", len(products))
	}
	p := products[0]
	if models.FloatOr(p.Price, 0) != 18.00 {
		t.Errorf("Price: got %v, want 18.00", p.Price)
	}
	if p.SourceCount != 3 {
		t.Errorf("SourceCount: got %d, want 3", p.SourceCount)
	}
	if p.PriceDifference != 3.50 {
		t.Errorf("PriceDifference: got %v, want 3.50", p.PriceDifference)
	}
	if p.Site != "c" || p.URL != "https://c.example/1" {
		t.Errorf("cheapest member should provide site and url: got %s %s", p.Site, p.URL)
	}
	if p.Title != "Acme X100 Widget" {
		t.Errorf("Title should come from the seed: got %q", p.Title)
	}
	if len(p.SimilarListings) != 2 {
		t.Errorf("SimilarListings: got %d, want 2", len(p.SimilarListings))
	}
}

func TestReconcileIsOrderIndependent(t *testing.T) {
	in := append(acmeListings(),
		models.Listing{ID: "a2", Site: "a", Title: "Garden Hose 20m", Price: models.Float(12)},
		models.Listing{ID: "b2", Site: "b", Title: "Garden Hose 20 m", Price: models.Float(11)},
		models.Listing{ID: "c2", Site: "c", Title: "Sony X90, Bravia 55in TV", Price: models.Float(999)},
	)
	reversed := make([]models.Listing, len(in))
	for i := range in {
		reversed[len(in)-1-i] = in[i]
	}

	r := NewReconciler(nil, utils.NewNopLogger())
	a, _ := r.Reconcile(context.Background(), in)
	b, _ := r.Reconcile(context.Background(), reversed)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("reconciliation depends on input order:\n%+v\n%+v", a, b)
	}
}

func TestReconcilePartitionIsComplete(t *testing.T) {
	in := append(acmeListings(),
		models.Listing{ID: "a2", Site: "a", Title: "Garden Hose 20m"},
		models.Listing{ID: "b2", Site: "b", Title: "Desk Lamp LED", Price: models.Float(25)},
		models.Listing{ID: "c2", Site: "c", Title: "Desk Lamp LED", Price: models.Float(22)},
	)
	r := NewReconciler(nil, utils.NewNopLogger())
	products, _ := r.Reconcile(context.Background(), in)

	members := 0
	for _, p := range products {
		members += 1 + len(p.SimilarListings)
	}
	if members != len(in) {
		t.Errorf("cluster members: got %d, want %d", members, len(in))
	}
	if len(products) != 3 {
		t.Errorf("products: got %d, want 3", len(products))
	}
}

func TestReconcileGroupsByBrandAndModel(t *testing.T) {
	in := []models.Listing{
		{ID: "1", Site: "a", Title: "Sony X90, Bravia 55in TV", Price: models.Float(999)},
		{ID: "2", Site: "b", Title: "Sony X90, refurbished, lowest price", Price: models.Float(899)},
		{ID: "3", Site: "c", Title: "Sony X80, Bravia 55in TV", Price: models.Float(799)},
	}
	r := NewReconciler(nil, utils.NewNopLogger())
	products, _ := r.Reconcile(context.Background(), in)

	if len(products) != 2 {
		t.Fatalf("products: got %d, want 2", len(products))
	}
	if products[0].SourceCount != 2 || models.FloatOr(products[0].Price, 0) != 899 {
		t.Errorf("brand+model cluster: got %+v", products[0])
	}
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestReconcileWithEmbeddings(t *testing.T) {
	e := &fakeEmbedder{vectors: map[string][]float32{
		"Noise cancelling headphones": {1, 0, 0},
		"ANC over-ear headset":        {0.95, 0.05, 0},
		"Garden hose":                 {0, 0, 1},
	}}
	in := []models.Listing{
		{ID: "1", Site: "a", Title: "Noise cancelling headphones", Price: models.Float(120)},
		{ID: "2", Site: "b", Title: "ANC over-ear headset", Price: models.Float(110)},
		{ID: "3", Site: "c", Title: "Garden hose", Price: models.Float(20)},
	}
	r := NewReconciler(e, utils.NewNopLogger())
	products, strategy := r.Reconcile(context.Background(), in)

	if strategy != StrategyEmbedding {
		t.Errorf("strategy: got %q, want embedding", strategy)
	}
	if len(products) != 2 {
		t.Fatalf("products: got %d, want 2", len(products))
	}
	if products[0].SourceCount != 2 || models.FloatOr(products[0].Price, 0) != 110 {
		t.Errorf("embedding cluster: got %+v", products[0])
	}
}

func TestReconcileFallsBackWhenEmbedderFails(t *testing.T) {
	r := NewReconciler(&fakeEmbedder{err: errors.New("quota exceeded")}, utils.NewNopLogger())
	products, strategy := r.Reconcile(context.Background(), acmeListings())

	if strategy != StrategyFuzzy {
		t.Errorf("strategy: got %q, want fuzzy", strategy)
	}
	if len(products) != 1 {
		t.Errorf("products: got %d, want 1", len(products))
	}
}

func TestMergeFieldRules(t *testing.T) {
	members := []models.Listing{
		{ID: "s", Site: "b", Title: "Seed", Currency: "EUR", Image: "https://i/1.jpg",
			Rating: models.Float(4.1), ReviewCount: models.Int(10)},
		{ID: "x", Site: "a", Title: "Other", Price: models.Float(30), Image: "https://i/long-image.jpg",
			Rating: models.Float(4.6), FreeShipping: true},
		{ID: "y", Site: "c", Title: "Cheap", Price: models.Float(20), OriginalPrice: models.Float(25),
			DiscountPercentage: models.Float(20), ReviewCount: models.Int(99)},
	}
	p := Merge(members)

	if models.FloatOr(p.Price, 0) != 20 || p.ID != "y" || p.Site != "c" {
		t.Errorf("cheapest: got price %v id %s site %s", p.Price, p.ID, p.Site)
	}
	if models.FloatOr(p.DiscountPercentage, 0) != 20 || models.FloatOr(p.OriginalPrice, 0) != 25 {
		t.Errorf("discount fields should follow the cheapest member")
	}
	if p.Title != "Seed" || p.Currency != "EUR" {
		t.Errorf("seed fields: got %q %q", p.Title, p.Currency)
	}
	if p.Image != "https://i/long-image.jpg" {
		t.Errorf("Image: got %q", p.Image)
	}
	if models.FloatOr(p.Rating, 0) != 4.6 || models.IntOr(p.ReviewCount, 0) != 99 {
		t.Errorf("rating/reviews: got %v / %v", p.Rating, p.ReviewCount)
	}
	if !p.FreeShipping {
		t.Error("FreeShipping should be true when any member ships free")
	}
	if !reflect.DeepEqual(p.AllSources, []string{"a", "b", "c"}) {
		t.Errorf("AllSources: got %v", p.AllSources)
	}
	if p.PriceDifference != 10 {
		t.Errorf("PriceDifference: got %v, want 10", p.PriceDifference)
	}
	if len(p.SimilarListings) != 2 {
		t.Errorf("SimilarListings: got %d, want 2", len(p.SimilarListings))
	}
}

func TestMergeSingleton(t *testing.T) {
	l := models.Listing{ID: "1", Site: "ebay", Title: "Solo", Price: models.Float(5)}
	p := Merge([]models.Listing{l})
	if p.SourceCount != 1 || !reflect.DeepEqual(p.AllSources, []string{"ebay"}) || p.PriceDifference != 0 {
		t.Errorf("singleton: got %+v", p)
	}
	if !reflect.DeepEqual(p.Listing, l) {
		t.Error("singleton listing should pass through unchanged")
	}
}
