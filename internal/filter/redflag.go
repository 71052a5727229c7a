// Package filter applies exclusion-term filtering to aggregated records.
package filter

import (
	"strings"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
)

// ContainsRedFlag returns true if any red flag term appears
// (case-insensitive) anywhere in the combined title + company + description
// text of the record.
func ContainsRedFlag(rec model.JobRecord, redFlags []string) bool {
	if len(redFlags) == 0 {
		return false
	}
	combined := strings.ToLower(rec.Title + " " + rec.Company + " " + rec.Description)
	for _, flag := range redFlags {
		if flag == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(flag)) {
			return true
		}
	}
	return false
}

// Apply drops records matching any red flag, returning the kept records and
// how many were discarded.
func Apply(records []model.JobRecord, redFlags []string) (kept []model.JobRecord, dropped int) {
	if len(redFlags) == 0 {
		return records, 0
	}
	kept = make([]model.JobRecord, 0, len(records))
	for _, rec := range records {
		if ContainsRedFlag(rec, redFlags) {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, dropped
}
