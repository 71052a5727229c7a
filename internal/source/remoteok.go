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

const remoteOKDefaultBaseURL = "https://remoteok.com/api"

// RemoteOK fetches the public RemoteOK JSON feed (native source, no
// credentials). The feed's first element is a legal notice without job
// fields; it fails record validation and is dropped like any malformed item.
type RemoteOK struct {
	baseURL string
	fetcher *fetch.Fetcher
}

// NewRemoteOK constructs the adapter.
func NewRemoteOK(f *fetch.Fetcher) *RemoteOK {
	return &RemoteOK{baseURL: remoteOKDefaultBaseURL, fetcher: f}
}

func (a *RemoteOK) ID() string             { return "remoteok" }
func (a *RemoteOK) Kind() model.SourceKind { return model.KindNative }

type remoteOKItem struct {
	Position    string   `json:"position"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	SalaryMin   float64  `json:"salary_min"`
	SalaryMax   float64  `json:"salary_max"`
	URL         string   `json:"url"`
	Date        string   `json:"date"`
}

// Fetch queries the feed filtered by tag and maps each item, skipping
// anything that does not unmarshal or fails validation.
func (a *RemoteOK) Fetch(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error) {
	params := url.Values{}
	if q.Query != "" {
		params.Set("tag", strings.ToLower(strings.ReplaceAll(q.Query, " ", "-")))
	}
	reqURL := a.baseURL
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	res := a.fetcher.Do(ctx, fetch.Request{
		SourceID: a.ID(),
		Method:   http.MethodGet,
		URL:      reqURL,
	})
	if res.Reason != fetch.OK {
		return nil, failure(a.ID(), res)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(res.Body, &items); err != nil {
		return nil, &FetchError{
			SourceID: a.ID(),
			Reason:   fetch.NetworkFailed,
			Err:      fmt.Errorf("json unmarshal: %w", err),
		}
	}

	records := make([]model.JobRecord, 0, len(items))
	for _, raw := range items {
		var item remoteOKItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		records = append(records, model.JobRecord{
			Title:       item.Position,
			Company:     item.Company,
			Location:    item.Location,
			Remote:      model.RemoteFull,
			SalaryMin:   item.SalaryMin,
			SalaryMax:   item.SalaryMax,
			Currency:    "USD",
			PostedAt:    item.Date,
			Description: item.Description,
			URL:         item.URL,
			Source:      a.ID(),
			Confidence:  model.ConfidenceHigh,
		})
	}
	return keepValid(records), nil
}
