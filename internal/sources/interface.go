package sources

import (
	"context"

	"github.com/launchwatch/launchcoin-feed/internal/models"
)

// SearchRequest describes one page of a recent-search query
type SearchRequest struct {
	Query      string
	SinceID    string
	MaxResults int
}

// Searcher defines the contract for the search provider
type Searcher interface {
	GetName() string
	IsEnabled() bool
	Search(ctx context.Context, req SearchRequest) (*models.SearchResult, error)
}
