package cahcd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"parkinsight/internal/models"
	"parkinsight/pkg/logger"
	"parkinsight/pkg/webclient"
)

func TestMain(m *testing.M) {
	logger.InitLogger(io.Discard, "ERROR")
	os.Exit(m.Run())
}

const auraResponse = `{
	"actions": [{
		"id": "148;a",
		"state": "SUCCESS",
		"returnValue": {
			"returnValue": {
				"queryResults": [
					{"Park Name": "Sunset MHP", "Total_Number_Lots": "42", "County": "Riverside"},
					{"Park Name": "Oak Grove", "Total_Number_Lots": "10", "County": "Riverside"}
				]
			}
		}
	}]
}`

func TestFetchParks(t *testing.T) {
	var gotForm string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("want POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		gotForm = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(auraResponse))
	}))
	defer srv.Close()

	web := webclient.NewClient()
	web.SetRetryWait(0)
	client := NewClient(srv.URL, web)

	payload, err := client.FetchParks(context.Background(), "33")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if payload.Kind() != models.KindArray || payload.Len() != 2 {
		t.Fatalf("want 2 records, got %v", payload)
	}

	first := payload.Items()[0]
	name, ok := first.Get("parkName")
	if !ok {
		t.Fatalf("keys not normalized: %v", first)
	}
	if s, _ := name.AsString(); s != "Sunset MHP" {
		t.Fatalf("want Sunset MHP, got %v", name)
	}
	if _, ok := first.Get("totalNumberLots"); !ok {
		t.Fatalf("underscore key not normalized: %v", first)
	}

	decoded, err := url.QueryUnescape(gotForm)
	if err != nil {
		t.Fatalf("form not url-encoded: %v", err)
	}
	for _, frag := range []string{"MobileHomeParksSearchController", "getSearchResults", "aura.token=null"} {
		if !strings.Contains(decoded, frag) {
			t.Fatalf("form missing %q:\n%s", frag, decoded)
		}
	}
}

func TestFetchParksFallbackWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Park Name": "Direct"}]`))
	}))
	defer srv.Close()

	web := webclient.NewClient()
	web.SetRetryWait(0)
	client := NewClient(srv.URL, web)

	payload, err := client.FetchParks(context.Background(), "")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if payload.Len() != 1 {
		t.Fatalf("want whole response back when envelope is missing, got %v", payload)
	}
}

func TestFetchParksServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	web := webclient.NewClient()
	web.SetRetryWait(0)
	client := NewClient(srv.URL, web)

	if _, err := client.FetchParks(context.Background(), "33"); err == nil {
		t.Fatal("want error when every attempt fails")
	}
}

func TestFetchParksNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	web := webclient.NewClient()
	web.SetRetryWait(0)
	client := NewClient(srv.URL, web)

	payload, err := client.FetchParks(context.Background(), "33")
	if err != nil {
		t.Fatalf("non-JSON body must not be an error: %v", err)
	}
	if !payload.IsNull() {
		t.Fatalf("want null payload, got %v", payload)
	}
}
