package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/fetch"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
)

const (
	adzunaDefaultBaseURL = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize       = 50
	adzunaMaxPages       = 3 // max 150 results per query
)

// Adzuna fetches job offers from the Adzuna search API (first-party,
// credentialed). If AppID or AppKey is empty, Fetch returns no results
// without attempting a request.
type Adzuna struct {
	appID   string
	appKey  string
	country string // "fr", "gb", "us", …
	baseURL string
	fetcher *fetch.Fetcher
}

// NewAdzuna constructs the adapter.
func NewAdzuna(f *fetch.Fetcher, appID, appKey, country string) *Adzuna {
	return &Adzuna{
		appID:   appID,
		appKey:  appKey,
		country: country,
		baseURL: adzunaDefaultBaseURL,
		fetcher: f,
	}
}

func (a *Adzuna) ID() string             { return "adzuna" }
func (a *Adzuna) Kind() model.SourceKind { return model.KindAPI }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []json.RawMessage `json:"results"`
	Count   int               `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Company      adzunaCompany  `json:"company"`
	Location     adzunaLocation `json:"location"`
	SalaryMin    float64        `json:"salary_min"`
	SalaryMax    float64        `json:"salary_max"`
	RedirectURL  string         `json:"redirect_url"`
	Created      string         `json:"created"`
	ContractTime string         `json:"contract_time"`
	ContractType string         `json:"contract_type"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// Fetch retrieves offers for the query, iterating through pages until no
// more results or adzunaMaxPages is reached. Items that fail to map are
// skipped; pages already fetched are kept when a later page fails.
func (a *Adzuna) Fetch(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error) {
	if a.appID == "" || a.appKey == "" {
		return nil, nil
	}

	var records []model.JobRecord
	for page := 1; page <= adzunaMaxPages; page++ {
		batch, err := a.fetchPage(ctx, q, page)
		if err != nil {
			if len(records) > 0 {
				return records, nil
			}
			return nil, err
		}
		records = append(records, batch...)
		if len(batch) < adzunaPageSize {
			break // last page
		}
	}
	return records, nil
}

func (a *Adzuna) fetchPage(ctx context.Context, q model.SearchQuery, page int) ([]model.JobRecord, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", a.baseURL, a.country, page)

	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", q.Query)
	if q.Location != "" {
		params.Set("where", q.Location)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	res := a.fetcher.Do(ctx, fetch.Request{
		SourceID: a.ID(),
		Method:   http.MethodGet,
		URL:      endpoint + "?" + params.Encode(),
	})
	if res.Reason != fetch.OK {
		return nil, failure(a.ID(), res)
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(res.Body, &apiResp); err != nil {
		return nil, &FetchError{
			SourceID: a.ID(),
			Reason:   fetch.NetworkFailed,
			Err:      fmt.Errorf("json unmarshal: %w", err),
		}
	}

	records := make([]model.JobRecord, 0, len(apiResp.Results))
	for _, raw := range apiResp.Results {
		var r adzunaResult
		if err := json.Unmarshal(raw, &r); err != nil {
			continue // malformed item — skip, keep the rest
		}
		records = append(records, model.JobRecord{
			Title:          r.Title,
			Company:        r.Company.DisplayName,
			Location:       r.Location.DisplayName,
			SalaryMin:      r.SalaryMin,
			SalaryMax:      r.SalaryMax,
			PostedAt:       r.Created,
			Description:    r.Description,
			URL:            r.RedirectURL,
			Source:         a.ID(),
			EmploymentType: adzunaEmployment(r.ContractTime, r.ContractType),
			Confidence:     model.ConfidenceHigh,
		})
	}
	return keepValid(records), nil
}

func adzunaEmployment(contractTime, contractType string) string {
	switch contractTime {
	case "full_time":
		return "full-time"
	case "part_time":
		return "part-time"
	}
	if contractType == "contract" {
		return "contract"
	}
	return ""
}
