// Package mhvillage fetches community listings and park details from the
// MHVillage commercial park-listing API.
package mhvillage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"parkinsight/internal/models"
	"parkinsight/internal/transformers"
	"parkinsight/pkg/logger"
	"parkinsight/pkg/webclient"
)

// offsetGuard stops pagination even when the reported total keeps moving.
const offsetGuard = 5000

var detailIncludes = []string{
	"appointment-availability", "photos", "address", "logo", "brochure",
	"homes-count", "site-count", "details", "phone", "alternate-phone",
	"state-association", "favorite-count", "lead-delivery-methods",
}

type Client struct {
	baseURL     string
	pageSize    int
	concurrency int
	web         *webclient.Client
}

func NewClient(baseURL string, pageSize, concurrency int, web *webclient.Client) *Client {
	if pageSize <= 0 {
		pageSize = 50
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	if web == nil {
		web = webclient.NewClient()
	}
	return &Client{baseURL: baseURL, pageSize: pageSize, concurrency: concurrency, web: web}
}

// FetchParkDetails enumerates the parks of a county via the paginated search
// endpoint, then fetches each park's detail record concurrently (bounded by
// the configured concurrency). maxPages of 0 means no page cap; pagination
// also stops on an empty page, when the reported total is reached, or at the
// offset guard. Failed detail lookups become error-marker objects. Keys come
// back normalized to lowerCamelCase.
func (c *Client) FetchParkDetails(ctx context.Context, county, state string, maxPages int) (models.Value, error) {
	keys, err := c.searchParkKeys(ctx, county, state, maxPages)
	if err != nil {
		return models.Null(), err
	}
	if len(keys) == 0 {
		return models.Array(), nil
	}

	details := make([]models.Value, len(keys))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			details[i] = c.fetchDetail(ctx, key)
		}(i, key)
	}
	wg.Wait()

	return transformers.NormalizeTree(models.Array(details...)), nil
}

func (c *Client) searchParkKeys(ctx context.Context, county, state string, maxPages int) ([]string, error) {
	var keys []string
	offset := 0
	pages := 0
	for {
		searchURL := c.searchURL(county, state, offset)
		search, _, err := c.web.GetJSON(ctx, searchURL, c.headers(county))
		if err != nil {
			if pages == 0 {
				return nil, fmt.Errorf("mhvillage search failed: %v", err)
			}
			logger.GlobalLogger.Errorf("mhvillage search page failed, stopping pagination: offset=%d, error=%v", offset, err)
			break
		}

		parks, ok := search.Get("payload")
		if !ok || parks.Kind() != models.KindArray || parks.Len() == 0 {
			break
		}
		for _, p := range parks.Items() {
			if p.Kind() != models.KindObject {
				continue
			}
			if key, ok := p.Get("key"); ok && !key.IsNull() {
				keys = append(keys, key.Text())
			}
		}

		total := 0
		if t, ok := search.Get("total"); ok {
			if f, isNum := t.AsFloat(); isNum {
				total = int(f)
			}
		}
		offset += c.pageSize
		pages++
		if (total > 0 && offset >= total) || (maxPages > 0 && pages >= maxPages) || offset > offsetGuard {
			break
		}
	}
	return keys, nil
}

func (c *Client) searchURL(county, state string, offset int) string {
	q := url.Values{}
	q.Set("county", county)
	q.Set("state", state)
	q.Set("offset", fmt.Sprintf("%d", offset))
	q.Set("limit", fmt.Sprintf("%d", c.pageSize))
	q.Set("radius", "0")
	q.Add("order[]", "best-match:asc")
	for _, inc := range []string{"photos", "address", "homes-count", "state-association"} {
		q.Add("include[]", inc)
	}
	return c.baseURL + "/api/v1/park-searches.json?" + q.Encode()
}

func (c *Client) fetchDetail(ctx context.Context, key string) models.Value {
	q := url.Values{}
	q.Add("order[]", "best-match:asc")
	for _, inc := range detailIncludes {
		q.Add("include[]", inc)
	}
	detailURL := fmt.Sprintf("%s/api/v1/parks/%s.json?%s", c.baseURL, key, q.Encode())

	detail, raw, err := c.web.GetJSON(ctx, detailURL, c.headers(""))
	if err != nil {
		logger.GlobalLogger.Errorf("mhvillage detail failed: key=%s, error=%v", key, err)
		marker := models.Object(
			models.Field{Key: "error", Value: models.Bool(true)},
			models.Field{Key: "key", Value: models.String(key)},
		)
		if len(raw) > 0 {
			marker.Set("raw", models.String(string(raw)))
		} else {
			marker.Set("message", models.String(err.Error()))
		}
		return marker
	}
	return detail
}

func (c *Client) headers(county string) map[string]string {
	referer := c.baseURL + "/parks"
	if county != "" {
		referer = c.baseURL + "/parks/ca/" + strings.ToLower(strings.ReplaceAll(county, " ", "-")) + "-county"
	}
	return map[string]string{
		"Referer":      referer,
		"Content-Type": "application/vnd.milli+json",
	}
}
