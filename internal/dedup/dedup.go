// Package dedup merges the concatenated record stream into a unique set
// using fuzzy identity matching. Input order is dedup priority: the first
// record seen for an identity (i.e. the earliest fetch phase) is kept as
// canonical, later matches only contribute their source to the identity's
// provenance list.
package dedup

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
)

// DefaultThreshold is the fuzzy similarity above which two identity keys
// are considered the same job. Exposed through configuration — phrasing
// differences ("Sr." vs "Senior") make this a tuning knob, not a constant.
const DefaultThreshold = 0.85

// Deduper deduplicates job records by fuzzy title+company identity.
type Deduper struct {
	threshold float64
}

// New creates a Deduper. A threshold outside (0, 1] falls back to the
// default.
func New(threshold float64) *Deduper {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Deduper{threshold: threshold}
}

// group is one distinct job identity in the output.
type group struct {
	key    string // identity key of the canonical record
	tokens string // sorted-token form of the key, for fuzzy comparison
}

// Dedup collapses records into a unique set in input order. Every input
// record joins at most one group: an exact key hit wins outright, otherwise
// the first existing group whose similarity meets the threshold. An empty
// input returns an empty result with zeroed statistics.
func (d *Deduper) Dedup(records []model.JobRecord) model.DedupResult {
	result := model.DedupResult{
		Unique:      []model.JobRecord{},
		MultiSource: map[string][]string{},
	}

	byKey := make(map[string]int) // exact identity key → group index
	groups := make([]group, 0, len(records))
	sources := make(map[string]struct{})

	for _, rec := range records {
		sources[rec.Source] = struct{}{}

		key := IdentityKey(rec)
		idx, ok := byKey[key]
		if !ok {
			idx, ok = d.fuzzyMatch(groups, key)
		}

		if ok {
			canonical := groups[idx].key
			if !contains(result.MultiSource[canonical], rec.Source) {
				result.MultiSource[canonical] = append(result.MultiSource[canonical], rec.Source)
			}
			continue
		}

		byKey[key] = len(groups)
		groups = append(groups, group{key: key, tokens: sortTokens(key)})
		result.Unique = append(result.Unique, rec)
		result.MultiSource[key] = []string{rec.Source}
	}

	result.Stats = model.DedupStats{
		OriginalCount:     len(records),
		DedupedCount:      len(result.Unique),
		DuplicatesRemoved: len(records) - len(result.Unique),
		DistinctSources:   len(sources),
	}
	return result
}

// fuzzyMatch returns the index of the first group whose sorted-token key is
// at least threshold-similar to key.
func (d *Deduper) fuzzyMatch(groups []group, key string) (int, bool) {
	tokens := sortTokens(key)
	for i := range groups {
		if Similarity(tokens, groups[i].tokens) >= d.threshold {
			return i, true
		}
	}
	return 0, false
}

// IdentityKey is the case-normalized title|company composite that decides
// whether two records refer to the same job.
func IdentityKey(r model.JobRecord) string {
	return strings.ToLower(strings.TrimSpace(r.Title)) + "|" + strings.ToLower(strings.TrimSpace(r.Company))
}

// Similarity is an order-insensitive ratio in [0, 1]: one minus the
// normalized edit distance. Callers pass sorted-token strings so word order
// does not affect the score.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// sortTokens splits a key into word tokens and rejoins them sorted.
func sortTokens(key string) string {
	tokens := strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '|' || r == ',' || r == '-' || r == '/'
	})
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
