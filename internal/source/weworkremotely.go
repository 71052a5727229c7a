package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/fetch"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
)

const wwrDefaultBaseURL = "https://weworkremotely.com"

// WeWorkRemotely scrapes the We Work Remotely search page (native source,
// no credentials). Scraped records carry low parse confidence. Markup
// changes break individual items, not the batch: each listing is mapped
// inside a recover so one bad node is skipped and the rest survive.
type WeWorkRemotely struct {
	baseURL string
	fetcher *fetch.Fetcher
}

// NewWeWorkRemotely constructs the adapter.
func NewWeWorkRemotely(f *fetch.Fetcher) *WeWorkRemotely {
	return &WeWorkRemotely{baseURL: wwrDefaultBaseURL, fetcher: f}
}

func (a *WeWorkRemotely) ID() string             { return "weworkremotely" }
func (a *WeWorkRemotely) Kind() model.SourceKind { return model.KindNative }

// Fetch scrapes the search results page for the query term.
func (a *WeWorkRemotely) Fetch(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error) {
	params := url.Values{}
	params.Set("term", q.Query)
	reqURL := a.baseURL + "/remote-jobs/search?" + params.Encode()

	res := a.fetcher.Do(ctx, fetch.Request{
		SourceID: a.ID(),
		Method:   http.MethodGet,
		URL:      reqURL,
		Header:   http.Header{"Accept": []string{"text/html"}},
	})
	if res.Reason != fetch.OK {
		return nil, failure(a.ID(), res)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, &FetchError{
			SourceID: a.ID(),
			Reason:   fetch.NetworkFailed,
			Err:      fmt.Errorf("parse html: %w", err),
		}
	}

	var records []model.JobRecord
	doc.Find("section.jobs article li").Each(func(_ int, li *goquery.Selection) {
		if rec, ok := a.mapListing(li); ok {
			records = append(records, rec)
		}
	})
	return keepValid(records), nil
}

// mapListing extracts one record from a listing node. ok is false when the
// node is not a job listing (section headers, view-all links) or when the
// markup did not match.
func (a *WeWorkRemotely) mapListing(li *goquery.Selection) (rec model.JobRecord, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	title := strings.TrimSpace(li.Find("span.title").First().Text())
	company := strings.TrimSpace(li.Find("span.company").First().Text())
	if title == "" || company == "" {
		return model.JobRecord{}, false
	}

	href, _ := li.Find("a[href^='/remote-jobs/']").First().Attr("href")
	if href == "" {
		href, _ = li.Find("a").First().Attr("href")
	}
	if href != "" && strings.HasPrefix(href, "/") {
		href = a.baseURL + href
	}

	region := strings.TrimSpace(li.Find("span.region").First().Text())

	return model.JobRecord{
		Title:      title,
		Company:    company,
		Location:   region,
		Remote:     model.RemoteFull,
		URL:        href,
		Source:     a.ID(),
		Confidence: model.ConfidenceLow,
	}, true
}
