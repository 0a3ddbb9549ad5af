package services

import "github.com/rotisserie/eris"

var (
	ErrEmptyQuery = eris.New("search query must not be empty")
	ErrNoResults  = eris.New("no products found matching the search criteria")

	errEmbeddingCount = eris.New("embedder returned a different number of vectors than titles")
)
