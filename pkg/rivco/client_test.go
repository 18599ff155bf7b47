package rivco

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"parkinsight/internal/models"
	"parkinsight/pkg/logger"
	"parkinsight/pkg/webclient"
)

func TestMain(m *testing.M) {
	logger.InitLogger(io.Discard, "ERROR")
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, detail func(w http.ResponseWriter, apn string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != dataPath {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad form: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.PostFormValue("field") {
		case "mv_Location:street_address":
			w.Write([]byte(`{"rows": [
				{"apn": "111", "situs_city": "PERRIS"},
				{"apn": "222", "situs_city": ""},
				{"apn": "", "situs_city": "IGNORED"},
				{"no_apn": true}
			]}`))
		case "mv_Location:PIN":
			detail(w, r.PostFormValue("value"))
		default:
			t.Errorf("unexpected field %q", r.PostFormValue("field"))
		}
	}))
}

func TestFetchParcels(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, apn string) {
		w.Write([]byte(`{"APN": "` + apn + `", "Assessment_Description": "MOBILE HOME PARK"}`))
	})
	defer srv.Close()

	web := webclient.NewClient()
	web.SetRetryWait(0)
	client := NewClient(srv.URL, 2, web)

	payload, err := client.FetchParcels(context.Background(), "mobile", 0)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if payload.Kind() != models.KindArray || payload.Len() != 2 {
		t.Fatalf("want 2 parcel records, got %v", payload)
	}

	first := payload.Items()[0]
	if v, _ := first.Get("apn"); v.Text() != "111" {
		t.Fatalf("detail order must follow search order, got %v", first)
	}
	if v, ok := first.Get("city"); !ok || v.Text() != "PERRIS" {
		t.Fatalf("situs city not joined in: %v", first)
	}
	if _, ok := first.Get("assessmentDescription"); !ok {
		t.Fatalf("keys not normalized: %v", first)
	}

	second := payload.Items()[1]
	if v, ok := second.Get("city"); ok {
		t.Fatalf("empty situs city must not be joined in, got %v", v)
	}
}

func TestFetchParcelsLimit(t *testing.T) {
	var detailCalls int
	srv := newTestServer(t, func(w http.ResponseWriter, apn string) {
		detailCalls++
		w.Write([]byte(`{"APN": "` + apn + `"}`))
	})
	defer srv.Close()

	web := webclient.NewClient()
	web.SetRetryWait(0)
	client := NewClient(srv.URL, 1, web)

	payload, err := client.FetchParcels(context.Background(), "mobile", 1)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if payload.Len() != 1 {
		t.Fatalf("limit not applied, got %d records", payload.Len())
	}
	if detailCalls != 1 {
		t.Fatalf("limit must cap detail lookups, got %d calls", detailCalls)
	}
}

func TestFetchParcelsDetailFailureBecomesMarker(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, apn string) {
		if apn == "222" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"APN": "` + apn + `"}`))
	})
	defer srv.Close()

	web := webclient.NewClient()
	web.SetRetryWait(0)
	client := NewClient(srv.URL, 2, web)

	payload, err := client.FetchParcels(context.Background(), "mobile", 0)
	if err != nil {
		t.Fatalf("one failed detail must not abort the batch: %v", err)
	}
	if payload.Len() != 2 {
		t.Fatalf("want 2 records, got %d", payload.Len())
	}

	marker := payload.Items()[1]
	if v, _ := marker.Get("error"); !v.AsBool() {
		t.Fatalf("want error marker, got %v", marker)
	}
	if v, _ := marker.Get("pin"); v.Text() != "222" {
		t.Fatalf("marker must carry the pin, got %v", marker)
	}
}

func TestFetchParcelsNoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rows": []}`))
	}))
	defer srv.Close()

	web := webclient.NewClient()
	web.SetRetryWait(0)
	client := NewClient(srv.URL, 2, web)

	payload, err := client.FetchParcels(context.Background(), "nothing", 0)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if payload.Kind() != models.KindArray || payload.Len() != 0 {
		t.Fatalf("want empty array, got %v", payload)
	}
}
