package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/fetch"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
)

const (
	jsearchDefaultBaseURL = "https://jsearch.p.rapidapi.com"
	jsearchHost           = "jsearch.p.rapidapi.com"
)

// JSearch fetches from the JSearch aggregator API, which re-publishes
// postings from several boards behind one endpoint. Each response item
// carries the publisher it originally appeared on; records are tagged with
// that origin (not with "jsearch"), so downstream display and dedup treat
// the aggregator as invisible. Unrecognized publishers bucket to "other".
type JSearch struct {
	apiKey  string
	baseURL string
	fetcher *fetch.Fetcher
}

// NewJSearch constructs the adapter.
func NewJSearch(f *fetch.Fetcher, apiKey string) *JSearch {
	return &JSearch{apiKey: apiKey, baseURL: jsearchDefaultBaseURL, fetcher: f}
}

func (a *JSearch) ID() string             { return "jsearch" }
func (a *JSearch) Kind() model.SourceKind { return model.KindAggregator }

// knownPublishers maps JSearch publisher names onto the logical source ids
// used across the pipeline. These ids alias to the jsearch backend in the
// rate limiter, so they all draw from one quota.
var knownPublishers = map[string]string{
	"linkedin":     "linkedin",
	"indeed":       "indeed",
	"glassdoor":    "glassdoor",
	"ziprecruiter": "ziprecruiter",
}

type jsearchResponse struct {
	Data []json.RawMessage `json:"data"`
}

type jsearchItem struct {
	JobTitle          string  `json:"job_title"`
	EmployerName      string  `json:"employer_name"`
	JobCity           string  `json:"job_city"`
	JobCountry        string  `json:"job_country"`
	JobIsRemote       bool    `json:"job_is_remote"`
	JobApplyLink      string  `json:"job_apply_link"`
	JobDescription    string  `json:"job_description"`
	JobPublisher      string  `json:"job_publisher"`
	JobEmploymentType string  `json:"job_employment_type"`
	JobMinSalary      float64 `json:"job_min_salary"`
	JobMaxSalary      float64 `json:"job_max_salary"`
	JobSalaryCurrency string  `json:"job_salary_currency"`
	JobPostedAt       string  `json:"job_posted_at_datetime_utc"`
}

// Fetch runs one aggregator search. Without an API key it yields nothing
// and makes no request.
func (a *JSearch) Fetch(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error) {
	if a.apiKey == "" {
		return nil, nil
	}

	query := q.Query
	if q.Location != "" {
		query += " in " + q.Location
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("num_pages", "1")

	header := http.Header{}
	header.Set("X-RapidAPI-Key", a.apiKey)
	header.Set("X-RapidAPI-Host", jsearchHost)

	res := a.fetcher.Do(ctx, fetch.Request{
		SourceID: a.ID(),
		Method:   http.MethodGet,
		URL:      a.baseURL + "/search?" + params.Encode(),
		Header:   header,
	})
	if res.Reason != fetch.OK {
		return nil, failure(a.ID(), res)
	}

	var apiResp jsearchResponse
	if err := json.Unmarshal(res.Body, &apiResp); err != nil {
		return nil, &FetchError{
			SourceID: a.ID(),
			Reason:   fetch.NetworkFailed,
			Err:      fmt.Errorf("json unmarshal: %w", err),
		}
	}

	records := make([]model.JobRecord, 0, len(apiResp.Data))
	for _, raw := range apiResp.Data {
		var item jsearchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}

		location := item.JobCity
		if item.JobCountry != "" {
			if location != "" {
				location += ", "
			}
			location += item.JobCountry
		}
		remote := model.RemoteUnknown
		if item.JobIsRemote {
			remote = model.RemoteFull
		}

		records = append(records, model.JobRecord{
			Title:          item.JobTitle,
			Company:        item.EmployerName,
			Location:       location,
			Remote:         remote,
			SalaryMin:      item.JobMinSalary,
			SalaryMax:      item.JobMaxSalary,
			Currency:       item.JobSalaryCurrency,
			PostedAt:       item.JobPostedAt,
			Description:    item.JobDescription,
			URL:            item.JobApplyLink,
			Source:         publisherSource(item.JobPublisher),
			EmploymentType: strings.ToLower(item.JobEmploymentType),
			Confidence:     model.ConfidenceHigh,
		})
	}
	return keepValid(records), nil
}

// publisherSource normalizes a per-item publisher tag to a logical source
// id, falling back to the generic "other" bucket.
func publisherSource(publisher string) string {
	if id, ok := knownPublishers[strings.ToLower(strings.TrimSpace(publisher))]; ok {
		return id
	}
	return "other"
}
