package services

import (
	"math"
	"strings"

	"powersearch/models"
)

// Scorer computes deal, confidence and relevance for reconciled products.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score annotates every product. query is the text that was sent to the
// stores; hints come from the preprocessor.
func (s *Scorer) Score(products []models.ReconciledProduct, query string, hints models.QueryHints) []models.ScoredProduct {
	rq := newRelevanceQuery(query, hints)
	out := make([]models.ScoredProduct, len(products))
	for i, p := range products {
		sp := models.ScoredProduct{
			ReconciledProduct: p,
			Brand:             ExtractBrand(&p.Listing),
			Category:          CategoryFor(&p.Listing, hints.Categories),
		}
		sp.DealScore = DealScore(&p)
		sp.Confidence = Confidence(&p)
		sp.RelevanceScore = rq.score(&p, sp.DealScore)
		out[i] = sp
	}
	return out
}

// DealScore rates how good an offer is, 0-100.
func DealScore(p *models.ReconciledProduct) float64 {
	score := math.Min(models.FloatOr(p.DiscountPercentage, 0), 50)
	if rating := models.FloatOr(p.Rating, 0); rating > 0 {
		score += rating / 5 * 25
	}
	if p.FreeShipping {
		score += 5
	}
	if reviews := models.IntOr(p.ReviewCount, 0); reviews > 0 {
		score += math.Min(20, 4*math.Log10(float64(reviews)+1))
	}
	return round1(clamp(score))
}

// Confidence rates how complete and corroborated a product record is, 0-100.
func Confidence(p *models.ReconciledProduct) float64 {
	score := 70.0
	if models.FloatOr(p.Rating, 0) > 0 && models.IntOr(p.ReviewCount, 0) > 10 {
		score += 10
	}
	if p.Image != "" {
		score += 5
	}
	if p.OriginalPrice != nil && models.FloatOr(p.DiscountPercentage, 0) > 0 {
		score += 5
	}
	if p.SourceCount > 1 {
		score += 10
	}
	return clamp(score)
}

type relevanceQuery struct {
	text      string
	terms     []string
	important []string
	brands    []string
}

func newRelevanceQuery(query string, hints models.QueryHints) relevanceQuery {
	rq := relevanceQuery{
		text:  strings.ToLower(strings.TrimSpace(query)),
		terms: strings.Fields(strings.ToLower(query)),
	}
	seen := make(map[string]struct{})
	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		rq.important = append(rq.important, term)
	}
	for _, b := range hints.Brands {
		add(b)
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			rq.brands = append(rq.brands, b)
		}
	}
	for _, a := range hints.Attributes {
		add(a)
	}
	return rq
}

func (rq relevanceQuery) score(p *models.ReconciledProduct, deal float64) float64 {
	title := strings.ToLower(p.Title)
	var score float64

	if len(rq.terms) > 0 {
		matched := 0
		for _, t := range rq.terms {
			if strings.Contains(title, t) {
				matched++
			}
		}
		switch {
		case strings.Contains(title, rq.text):
			score += 50
		case matched == len(rq.terms):
			score += 40
		default:
			score += 30 * float64(matched) / float64(len(rq.terms))
		}
	}

	if len(rq.important) > 0 {
		matched := 0
		for _, t := range rq.important {
			if strings.Contains(title, t) {
				matched++
			}
		}
		score += 10 * float64(matched) / float64(len(rq.important))
	}

	for _, b := range rq.brands {
		if strings.Contains(title, b) {
			score += 15
			break
		}
	}

	score += deal * 0.2
	if rating := models.FloatOr(p.Rating, 0); rating > 0 {
		score += math.Min(10, rating*2)
	}
	if reviews := models.IntOr(p.ReviewCount, 0); reviews > 0 {
		score += math.Min(5, math.Log10(float64(reviews)+1))
	}
	if p.SourceCount > 1 {
		score += 5 * math.Min(3, float64(p.SourceCount))
	}
	return round1(clamp(score))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
