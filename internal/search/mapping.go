package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for tab documents.
//
// The mapping is designed with these priorities:
//  1. Fast full-text search on titles with English stemming
//  2. Diacritic-insensitive matching through the folded title field
//  3. Exact keyword matching on host for site-scoped queries
//  4. Numeric recency field for sorting
//  5. Term vectors on the title for highlighting
func buildIndexMapping() mapping.IndexMapping {
	// Create the index mapping
	indexMapping := bleve.NewIndexMapping()

	// Use English analyzer as default for text fields
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	// Create document mapping
	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Title - primary search target, boosted
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// Folded title - searchable but not stored; simple analyzer keeps
	// it stem-free so folded queries hit folded terms verbatim
	foldedFieldMapping := bleve.NewTextFieldMapping()
	foldedFieldMapping.Analyzer = simple.Name
	foldedFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("title_folded", foldedFieldMapping)

	// URL - simple analyzer splits on punctuation so path words match
	urlFieldMapping := bleve.NewTextFieldMapping()
	urlFieldMapping.Analyzer = simple.Name
	urlFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("url", urlFieldMapping)

	// Device name - searchable with simple analyzer (no stemming)
	deviceFieldMapping := bleve.NewTextFieldMapping()
	deviceFieldMapping.Analyzer = simple.Name
	deviceFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("device_name", deviceFieldMapping)

	// --- Keyword fields (exact match) ---

	// Type - for filtering by document type
	typeFieldMapping := bleve.NewTextFieldMapping()
	typeFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("type", typeFieldMapping)

	// ID - stored but not analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Host - keyword analyzer for exact and prefix site matching
	hostFieldMapping := bleve.NewTextFieldMapping()
	hostFieldMapping.Analyzer = keyword.Name
	hostFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("host", hostFieldMapping)

	// --- Numeric fields ---

	// Last used - for sorting by recency
	lastUsedFieldMapping := bleve.NewNumericFieldMapping()
	lastUsedFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("last_used_at", lastUsedFieldMapping)

	// Register the document mapping
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
