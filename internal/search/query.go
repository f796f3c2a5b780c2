package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string   // User's search query
	Types []string // Document types to include (empty = all)

	// Pagination
	Limit  int
	Offset int

	// Sorting: "relevance" (default) or "recent"
	SortBy string

	// Options
	Highlight bool // Include match highlighting
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     20,
		Offset:    0,
		SortBy:    "relevance",
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string   `json:"query"`
	Total  uint64   `json:"total"`
	TookMs int64    `json:"took_ms"`
	Hits   []TabHit `json:"hits"`
}

// TabHit represents a single search result.
type TabHit struct {
	ID         string            `json:"id"`
	Type       DocType           `json:"type"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	URL        string            `json:"url,omitempty"`
	Host       string            `json:"host,omitempty"`
	DeviceName string            `json:"device_name,omitempty"`
	LastUsedAt int64             `json:"last_used_at,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query.
func (s *TabIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Build the query
	searchQuery := buildSearchQuery(params)

	// Create search request
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	// Add sorting
	addSorting(searchRequest, params)

	// Add highlighting
	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("url")
		searchRequest.Highlight.AddField("device_name")
	}

	// Request stored fields
	searchRequest.Fields = []string{
		"id", "type", "title", "url", "host", "device_name", "last_used_at",
	}

	// Execute search
	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	// Convert results
	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]TabHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		tabHit := TabHit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		// Extract stored fields
		if t, ok := hit.Fields["type"].(string); ok {
			tabHit.Type = DocType(t)
		}
		if title, ok := hit.Fields["title"].(string); ok {
			tabHit.Title = title
		}
		if u, ok := hit.Fields["url"].(string); ok {
			tabHit.URL = u
		}
		if h, ok := hit.Fields["host"].(string); ok {
			tabHit.Host = h
		}
		if d, ok := hit.Fields["device_name"].(string); ok {
			tabHit.DeviceName = d
		}
		if lu, ok := hit.Fields["last_used_at"].(float64); ok {
			tabHit.LastUsedAt = int64(lu)
		}

		// Extract highlights
		if len(hit.Fragments) > 0 {
			tabHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					tabHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, tabHit)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	// Main text query
	// Search strategy:
	// - Title match is the primary signal, boosted hard
	// - The folded title catches diacritic mismatches
	// - Host prefix handles "gith" -> github.com style typing
	// - URL words catch path fragments
	// - A fuzzy pass tolerates one typo
	if params.Query != "" {
		textQueries := []query.Query{}

		// Title match with highest boost
		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		// Folded title match: fold the query the same way the field
		// was folded at index time
		if folded := Fold(params.Query); folded != "" {
			foldedMatch := bleve.NewMatchQuery(folded)
			foldedMatch.SetField("title_folded")
			foldedMatch.SetBoost(2.0)
			textQueries = append(textQueries, foldedMatch)
		}

		// Host prefix for site-oriented queries
		hostPrefix := bleve.NewPrefixQuery(strings.ToLower(params.Query))
		hostPrefix.SetField("host")
		hostPrefix.SetBoost(2.0)
		textQueries = append(textQueries, hostPrefix)

		// URL word match
		urlMatch := bleve.NewMatchQuery(params.Query)
		urlMatch.SetField("url")
		urlMatch.SetBoost(1.0)
		textQueries = append(textQueries, urlMatch)

		// Add fuzzy matching for typo tolerance on title
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		// Combine with OR (match any field)
		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Type filter
	if len(params.Types) > 0 {
		typeQueries := make([]query.Query, len(params.Types))
		for i, t := range params.Types {
			tq := bleve.NewTermQuery(t)
			tq.SetField("type")
			typeQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(typeQueries...))
	}

	// Combine all queries with AND
	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case "recent":
		req.SortBy([]string{"-last_used_at", "-_score"})
	default:
		// Relevance (score) is default - Bleve handles this
		req.SortBy([]string{"-_score"})
	}
}
