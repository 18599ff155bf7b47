// Package rivco fetches parcel assessment details from the Riverside County
// Assessor's RivCoView lookup service.
package rivco

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"parkinsight/internal/models"
	"parkinsight/internal/transformers"
	"parkinsight/pkg/logger"
	"parkinsight/pkg/webclient"
)

const dataPath = "/data/ajaxcalls/db/getData.php"

type Client struct {
	baseURL     string
	concurrency int
	web         *webclient.Client
}

func NewClient(baseURL string, concurrency int, web *webclient.Client) *Client {
	if concurrency <= 0 {
		concurrency = 10
	}
	if web == nil {
		web = webclient.NewClient()
	}
	return &Client{baseURL: baseURL, concurrency: concurrency, web: web}
}

// FetchParcels searches parcels whose street address contains the query,
// then fetches per-APN assessment details concurrently (bounded by the
// configured concurrency). A positive limit caps the number of detail
// lookups. Detail results keep the search order; a failed detail lookup
// becomes an error-marker object instead of aborting the batch. Each detail
// record gets the situs city from its search row joined in under "city"
// before key normalization.
func (c *Client) FetchParcels(ctx context.Context, query string, limit int) (models.Value, error) {
	form := url.Values{}
	form.Set("qtype", "assessment_info")
	form.Set("field", "mv_Location:street_address")
	form.Set("value", query)

	search, _, err := c.web.PostForm(ctx, c.baseURL+dataPath, form.Encode(), c.headers())
	if err != nil {
		return models.Null(), fmt.Errorf("rivcoview search failed: %v", err)
	}

	rows, ok := search.Get("rows")
	if !ok || rows.Kind() != models.KindArray {
		return models.Array(), nil
	}

	var apns []string
	cityByAPN := make(map[string]models.Value)
	for _, row := range rows.Items() {
		if row.Kind() != models.KindObject {
			continue
		}
		apnVal, ok := row.Get("apn")
		if !ok {
			continue
		}
		apn, ok := apnVal.AsString()
		if !ok || apn == "" {
			continue
		}
		apns = append(apns, apn)
		if city, ok := row.Get("situs_city"); ok {
			if s, _ := city.AsString(); s != "" {
				cityByAPN[apn] = city
			}
		}
	}
	if len(apns) == 0 {
		return models.Array(), nil
	}
	if limit > 0 && len(apns) > limit {
		apns = apns[:limit]
	}

	details := c.fetchDetails(ctx, apns)

	for i, apn := range apns {
		city, ok := cityByAPN[apn]
		if !ok {
			continue
		}
		switch details[i].Kind() {
		case models.KindObject:
			details[i].SetDefault("city", city)
		case models.KindArray:
			items := details[i].Items()
			for j := range items {
				if items[j].Kind() == models.KindObject {
					items[j].SetDefault("city", city)
				}
			}
		}
	}

	return transformers.NormalizeTree(models.Array(details...)), nil
}

// fetchDetails runs per-APN lookups with a bounded worker pool, filling the
// result slice by slot so completion order does not matter.
func (c *Client) fetchDetails(ctx context.Context, apns []string) []models.Value {
	details := make([]models.Value, len(apns))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for i, apn := range apns {
		wg.Add(1)
		go func(i int, apn string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			details[i] = c.fetchDetail(ctx, apn)
		}(i, apn)
	}
	wg.Wait()
	return details
}

func (c *Client) fetchDetail(ctx context.Context, apn string) models.Value {
	form := url.Values{}
	form.Set("qtype", "assessment_info")
	form.Set("field", "mv_Location:PIN")
	form.Set("value", apn)

	detail, raw, err := c.web.PostForm(ctx, c.baseURL+dataPath, form.Encode(), c.headers())
	if err != nil {
		logger.GlobalLogger.Errorf("rivcoview detail failed: apn=%s, error=%v", apn, err)
		marker := models.Object(
			models.Field{Key: "error", Value: models.Bool(true)},
			models.Field{Key: "pin", Value: models.String(apn)},
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

func (c *Client) headers() map[string]string {
	return map[string]string{
		"accept":           "application/json, text/javascript, */*; q=0.01",
		"accept-language":  "en-US,en;q=0.9",
		"cache-control":    "no-cache",
		"origin":           c.baseURL,
		"pragma":           "no-cache",
		"referer":          c.baseURL + "/",
		"x-requested-with": "XMLHttpRequest",
		"Cookie":           "surveym_link=1",
	}
}
