package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestNewGooglePSE_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)

	if _, err := NewGooglePSE(context.Background(), GooglePSEConfig{EngineID: "cx"}, logger); err == nil {
		t.Error("expected error without API key")
	}
	if _, err := NewGooglePSE(context.Background(), GooglePSEConfig{APIKey: "key"}, logger); err == nil {
		t.Error("expected error without engine id")
	}
}

func TestGooglePSE_Search(t *testing.T) {
	var gotQuery, gotCx, gotNum, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotCx = r.URL.Query().Get("cx")
		gotNum = r.URL.Query().Get("num")
		gotKey = r.URL.Query().Get("key")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{"title": "Consumer Price Index", "link": "https://www.geostat.ge/en/modules/categories/26/cpi-inflation", "snippet": "Monthly inflation"},
				{"title": "Elsewhere", "link": "https://example.com/cpi", "snippet": "Not geostat"}
			]
		}`))
	}))
	defer server.Close()

	pse, err := NewGooglePSE(context.Background(), GooglePSEConfig{
		APIKey:   "test-key",
		EngineID: "test-cx",
		Endpoint: server.URL + "/",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewGooglePSE failed: %v", err)
	}

	results, err := pse.Search(context.Background(), "site:geostat.ge inflation")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotQuery != "site:geostat.ge inflation" || gotCx != "test-cx" || gotNum != "10" || gotKey != "test-key" {
		t.Errorf("unexpected request q=%q cx=%q num=%q key=%q", gotQuery, gotCx, gotNum, gotKey)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Score <= 0 {
		t.Errorf("expected geostat page to score positive, got %d", results[0].Score)
	}
	if results[1].Score >= 0 {
		t.Errorf("expected foreign page to score negative, got %d", results[1].Score)
	}
}

func TestGooglePSE_SearchNoItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"searchInformation": {"totalResults": "0"}}`))
	}))
	defer server.Close()

	pse, err := NewGooglePSE(context.Background(), GooglePSEConfig{
		APIKey:   "test-key",
		EngineID: "test-cx",
		Endpoint: server.URL + "/",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewGooglePSE failed: %v", err)
	}

	results, err := pse.Search(context.Background(), "site:geostat.ge nothing")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestGooglePSE_SearchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "quota exceeded"}}`))
	}))
	defer server.Close()

	pse, err := NewGooglePSE(context.Background(), GooglePSEConfig{
		APIKey:   "test-key",
		EngineID: "test-cx",
		Endpoint: server.URL + "/",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewGooglePSE failed: %v", err)
	}

	if _, err := pse.Search(context.Background(), "site:geostat.ge gdp"); err == nil {
		t.Error("expected error for 403 response")
	}
}
