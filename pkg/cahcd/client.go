// Package cahcd fetches Mobile Home Park search results from the CA HCD
// public registry, a Salesforce community site answering Aura RPC calls.
package cahcd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"parkinsight/internal/models"
	"parkinsight/internal/transformers"
	"parkinsight/pkg/logger"
	"parkinsight/pkg/webclient"
)

// DefaultCountyCode is Riverside County in the HCD numbering.
const DefaultCountyCode = "33"

// fwuid pins the Aura framework build the community site currently serves.
const fwuid = "eE5UbjZPdVlRT3M0d0xtOXc5MzVOQWg5TGxiTHU3MEQ5RnBMM0VzVXc1cmcxMi42MjkxNDU2LjE2Nzc3MjE2"

type Client struct {
	baseURL string
	web     *webclient.Client
}

func NewClient(baseURL string, web *webclient.Client) *Client {
	if web == nil {
		web = webclient.NewClient()
	}
	return &Client{baseURL: baseURL, web: web}
}

// FetchParks returns the park search results for a county code with keys
// normalized to lowerCamelCase. The Aura response nests the result list under
// actions[].returnValue.returnValue.queryResults; when that envelope is
// missing the whole response is returned instead. A response that is not
// JSON yields a null payload, not an error.
func (c *Client) FetchParks(ctx context.Context, countyCode string) (models.Value, error) {
	if countyCode == "" {
		countyCode = DefaultCountyCode
	}

	endpoint := c.baseURL + "/s/sfsites/aura?r=4&aura.ApexAction.execute=1"
	data, raw, err := c.web.PostForm(ctx, endpoint, auraForm(countyCode), c.headers())
	if err != nil {
		if len(raw) == 0 {
			return models.Null(), fmt.Errorf("ca_hcd fetch failed: %v", err)
		}
		logger.GlobalLogger.Errorf("ca_hcd response was not JSON: %v", err)
		return models.Null(), nil
	}

	payload := unwrapQueryResults(data)
	return transformers.NormalizeTree(payload), nil
}

// auraForm builds the form-encoded Aura action envelope for the park search
// Apex controller.
func auraForm(countyCode string) string {
	searchParams := fmt.Sprintf(`{"parkstatus":"All","county":%q,"city":"All Cities"}`, countyCode)
	quoted, _ := json.Marshal(searchParams)

	message := fmt.Sprintf(`{"actions":[{"id":"148;a",`+
		`"descriptor":"aura://ApexActionController/ACTION$execute",`+
		`"callingDescriptor":"UNKNOWN",`+
		`"params":{"namespace":"","classname":"MobileHomeParksSearchController",`+
		`"method":"getSearchResults","params":{"searchParams":%s},`+
		`"cacheable":false,"isContinuation":false}}]}`, quoted)

	auraContext := fmt.Sprintf(`{"mode":"PROD","fwuid":%q,"app":"siteforce:communityApp",`+
		`"loaded":{"APPLICATION@markup://siteforce:communityApp":"1305_7pTC6grCTP7M16KdvDQ-Xw"},`+
		`"dn":[],"globals":{},"uad":true}`, fwuid)

	form := url.Values{}
	form.Set("message", message)
	form.Set("aura.context", auraContext)
	form.Set("aura.pageURI", "/s/mobilehomeparksearch")
	form.Set("aura.token", "null")
	return form.Encode()
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"accept":          "*/*",
		"accept-language": "en-US,en;q=0.9",
		"cache-control":   "no-cache",
		"origin":          c.baseURL,
		"pragma":          "no-cache",
		"referer":         c.baseURL + "/s/mobilehomeparksearch",
		"sec-fetch-dest":  "empty",
		"sec-fetch-mode":  "cors",
		"sec-fetch-site":  "same-origin",
	}
}

// unwrapQueryResults digs the queryResults list out of the Aura action
// envelope, tolerating one extra level of returnValue nesting.
func unwrapQueryResults(data models.Value) models.Value {
	actions, ok := data.Get("actions")
	if !ok || actions.Kind() != models.KindArray {
		return data
	}
	for _, act := range actions.Items() {
		rv, ok := act.Get("returnValue")
		if !ok || rv.Kind() != models.KindObject {
			continue
		}
		inner := rv
		if nested, ok := rv.Get("returnValue"); ok && nested.Kind() == models.KindObject {
			inner = nested
		}
		if qr, ok := inner.Get("queryResults"); ok {
			return qr
		}
	}
	return data
}
