// Package model defines the data structures shared across the aggregation
// pipeline: normalized job records, search queries and dedup results.
package model

import "strings"

// SourceKind classifies a source by how its postings are obtained. The kind
// determines the fetch phase: native sources run first, credentialed
// first-party APIs second, third-party aggregators last, so that a posting
// seen on several boards is always kept under its earliest-phase record.
type SourceKind int

const (
	// KindNative covers site scrapes and public first-party JSON feeds.
	KindNative SourceKind = iota
	// KindAPI covers credentialed first-party APIs.
	KindAPI
	// KindAggregator covers third-party APIs that re-publish postings
	// already available on native or first-party sources.
	KindAggregator
)

// Phase returns the fetch phase for the kind (1-based, display only).
func (k SourceKind) Phase() int { return int(k) + 1 }

func (k SourceKind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindAPI:
		return "api"
	case KindAggregator:
		return "aggregator"
	default:
		return "unknown"
	}
}

// Remote-arrangement tags.
const (
	RemoteFull    = "remote"
	RemoteHybrid  = "hybrid"
	RemoteOnSite  = "on-site"
	RemoteUnknown = ""
)

// Parse-confidence tags. API-sourced records are ConfidenceHigh; records
// mapped out of scraped markup are ConfidenceLow.
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// JobRecord is a normalised posting fetched from an external source.
// Records are created by one source adapter, validated at the adapter
// boundary, and immutable afterwards.
type JobRecord struct {
	Title          string  `json:"title"`
	Company        string  `json:"company"`
	Location       string  `json:"location,omitempty"`
	Remote         string  `json:"remote,omitempty"`
	Salary         string  `json:"salary,omitempty"`
	SalaryMin      float64 `json:"salaryMin,omitempty"`
	SalaryMax      float64 `json:"salaryMax,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	PostedAt       string  `json:"postedAt,omitempty"`
	Description    string  `json:"description,omitempty"`
	URL            string  `json:"url"`
	Source         string  `json:"source"`
	EmploymentType string  `json:"employmentType,omitempty"`
	Confidence     string  `json:"confidence,omitempty"`
}

// Valid reports whether the record satisfies the adapter-boundary invariant:
// title, company and URL must all be non-empty. Invalid records are dropped
// by the adapter and never reach the orchestrator.
func (r JobRecord) Valid() bool {
	return strings.TrimSpace(r.Title) != "" &&
		strings.TrimSpace(r.Company) != "" &&
		strings.TrimSpace(r.URL) != ""
}

// SearchFilters carries optional structured filters a source may honour.
// Sources that have no notion of a filter simply ignore it.
type SearchFilters struct {
	GradeMin      int      `json:"gradeMin,omitempty"`
	GradeMax      int      `json:"gradeMax,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
}

// SearchQuery is one unit of work for the orchestrator: a query against a
// single source. Built once per run from configuration, immutable afterwards.
type SearchQuery struct {
	SourceID string
	Query    string
	Location string
	Filters  *SearchFilters
}

// DedupStats summarises one dedup pass.
type DedupStats struct {
	OriginalCount     int `json:"originalCount"`
	DedupedCount      int `json:"dedupedCount"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
	DistinctSources   int `json:"distinctSources"`
}

// DedupResult is the outcome of deduplicating one concatenated record
// stream. MultiSource maps an identity key to the ordered list of sources
// that produced a record with that identity (canonical source first).
type DedupResult struct {
	Unique      []JobRecord
	Stats       DedupStats
	MultiSource map[string][]string
}
