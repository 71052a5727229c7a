package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/fetch"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
)

const usaJobsDefaultBaseURL = "https://data.usajobs.gov/api/search"

// USAJobs fetches postings from the USAJOBS Search API (first-party,
// credentialed). It honours the structured query filters: grade range maps
// to PayGradeLow/PayGradeHigh and preferred organizations to Organization.
// Without an API key the adapter yields nothing and makes no request.
type USAJobs struct {
	apiKey  string
	email   string // the API requires a contact address as User-Agent
	baseURL string
	fetcher *fetch.Fetcher
}

// NewUSAJobs constructs the adapter.
func NewUSAJobs(f *fetch.Fetcher, apiKey, email string) *USAJobs {
	return &USAJobs{apiKey: apiKey, email: email, baseURL: usaJobsDefaultBaseURL, fetcher: f}
}

func (a *USAJobs) ID() string             { return "usajobs" }
func (a *USAJobs) Kind() model.SourceKind { return model.KindAPI }

type usaJobsResponse struct {
	SearchResult struct {
		SearchResultItems []json.RawMessage `json:"SearchResultItems"`
	} `json:"SearchResult"`
}

type usaJobsItem struct {
	MatchedObjectDescriptor struct {
		PositionTitle           string `json:"PositionTitle"`
		PositionURI             string `json:"PositionURI"`
		OrganizationName        string `json:"OrganizationName"`
		PositionLocationDisplay string `json:"PositionLocationDisplay"`
		PublicationStartDate    string `json:"PublicationStartDate"`
		PositionRemuneration    []struct {
			MinimumRange     string `json:"MinimumRange"`
			MaximumRange     string `json:"MaximumRange"`
			RateIntervalCode string `json:"RateIntervalCode"`
		} `json:"PositionRemuneration"`
		PositionSchedule []struct {
			Name string `json:"Name"`
		} `json:"PositionSchedule"`
		UserArea struct {
			Details struct {
				JobSummary   string `json:"JobSummary"`
				TeleworkText string `json:"Telework"`
			} `json:"Details"`
		} `json:"UserArea"`
	} `json:"MatchedObjectDescriptor"`
}

// Fetch runs one search against the API and maps each result item,
// skipping items that fail to unmarshal.
func (a *USAJobs) Fetch(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error) {
	if a.apiKey == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("Keyword", q.Query)
	if q.Location != "" {
		params.Set("LocationName", q.Location)
	}
	params.Set("ResultsPerPage", "100")
	if f := q.Filters; f != nil {
		if f.GradeMin > 0 {
			params.Set("PayGradeLow", strconv.Itoa(f.GradeMin))
		}
		if f.GradeMax > 0 {
			params.Set("PayGradeHigh", strconv.Itoa(f.GradeMax))
		}
		if len(f.Organizations) > 0 {
			params.Set("Organization", strings.Join(f.Organizations, ";"))
		}
	}

	header := http.Header{}
	header.Set("Authorization-Key", a.apiKey)
	header.Set("Host", "data.usajobs.gov")
	if a.email != "" {
		header.Set("User-Agent", a.email)
	}

	res := a.fetcher.Do(ctx, fetch.Request{
		SourceID: a.ID(),
		Method:   http.MethodGet,
		URL:      a.baseURL + "?" + params.Encode(),
		Header:   header,
	})
	if res.Reason != fetch.OK {
		return nil, failure(a.ID(), res)
	}

	var apiResp usaJobsResponse
	if err := json.Unmarshal(res.Body, &apiResp); err != nil {
		return nil, &FetchError{
			SourceID: a.ID(),
			Reason:   fetch.NetworkFailed,
			Err:      fmt.Errorf("json unmarshal: %w", err),
		}
	}

	records := make([]model.JobRecord, 0, len(apiResp.SearchResult.SearchResultItems))
	for _, raw := range apiResp.SearchResult.SearchResultItems {
		var item usaJobsItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		d := item.MatchedObjectDescriptor

		rec := model.JobRecord{
			Title:       d.PositionTitle,
			Company:     d.OrganizationName,
			Location:    d.PositionLocationDisplay,
			PostedAt:    d.PublicationStartDate,
			Description: d.UserArea.Details.JobSummary,
			URL:         d.PositionURI,
			Source:      a.ID(),
			Currency:    "USD",
			Confidence:  model.ConfidenceHigh,
		}
		if len(d.PositionRemuneration) > 0 {
			rem := d.PositionRemuneration[0]
			rec.SalaryMin, _ = strconv.ParseFloat(rem.MinimumRange, 64)
			rec.SalaryMax, _ = strconv.ParseFloat(rem.MaximumRange, 64)
			rec.Salary = fmt.Sprintf("%s–%s %s", rem.MinimumRange, rem.MaximumRange, rem.RateIntervalCode)
		}
		if len(d.PositionSchedule) > 0 {
			rec.EmploymentType = strings.ToLower(strings.ReplaceAll(d.PositionSchedule[0].Name, " ", "-"))
		}
		if strings.Contains(strings.ToLower(d.UserArea.Details.TeleworkText), "telework") {
			rec.Remote = model.RemoteHybrid
		}
		records = append(records, rec)
	}
	return keepValid(records), nil
}
