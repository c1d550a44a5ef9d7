package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hunter-backend/config"
	"hunter-backend/runner"
	"hunter-backend/utils"
)

func newTestServer() *Server {
	cfg := &config.Config{
		RateLimitMs:        10,
		MaxRetries:         1,
		ApifyWebhookSecret: "hook-secret",
		RunAPISecret:       "run-secret",
	}
	logger := utils.NewLogger()
	return New(cfg, runner.New(cfg, nil, logger), logger)
}

func doRequest(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := doRequest(newTestServer(), http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d; want 200", w.Code)
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	s := newTestServer()

	w := doRequest(s, http.MethodPost, "/webhook/apify", `{"datasetId":"ds1"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing secret = %d; want 401", w.Code)
	}

	w = doRequest(s, http.MethodPost, "/webhook/apify", `{"datasetId":"ds1"}`,
		map[string]string{"x-apify-webhook-secret": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret = %d; want 401", w.Code)
	}
}

func TestWebhookAcceptsDatasetID(t *testing.T) {
	s := newTestServer()
	headers := map[string]string{"x-apify-webhook-secret": "hook-secret"}

	w := doRequest(s, http.MethodPost, "/webhook/apify", `{"datasetId":"ds1"}`, headers)
	if w.Code != http.StatusAccepted {
		t.Fatalf("bare datasetId = %d; want 202 (body %s)", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["dataset_id"] != "ds1" {
		t.Errorf("dataset_id = %v; want ds1", resp["dataset_id"])
	}
}

func TestWebhookAcceptsNestedDatasetID(t *testing.T) {
	s := newTestServer()
	headers := map[string]string{"x-apify-webhook-secret": "hook-secret"}

	w := doRequest(s, http.MethodPost, "/webhook/apify",
		`{"resource":{"defaultDatasetId":"ds2"}}`, headers)
	if w.Code != http.StatusAccepted {
		t.Fatalf("nested dataset id = %d; want 202", w.Code)
	}
}

func TestWebhookRejectsMissingDatasetID(t *testing.T) {
	s := newTestServer()
	headers := map[string]string{"x-apify-webhook-secret": "hook-secret"}

	w := doRequest(s, http.MethodPost, "/webhook/apify", `{}`, headers)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty payload = %d; want 400", w.Code)
	}
}

func TestRunEndpointRejectsBadSecret(t *testing.T) {
	s := newTestServer()

	w := doRequest(s, http.MethodPost, "/api/run", `{"source":"komornik"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing secret = %d; want 401", w.Code)
	}
}

func TestRunEndpointRejectsUnknownSource(t *testing.T) {
	s := newTestServer()
	headers := map[string]string{"X-Run-Secret": "run-secret"}

	w := doRequest(s, http.MethodPost, "/api/run", `{"source":"allegro"}`, headers)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown source = %d; want 400", w.Code)
	}
}

func TestRunEndpointSingleFlight(t *testing.T) {
	s := newTestServer()
	headers := map[string]string{"X-Run-Secret": "run-secret"}

	if !s.tryAcquire("komornik") {
		t.Fatal("state should be free")
	}

	w := doRequest(s, http.MethodPost, "/api/run", `{"source":"olx"}`, headers)
	if w.Code != http.StatusConflict {
		t.Errorf("concurrent run = %d; want 409", w.Code)
	}

	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["source"] != "komornik" {
		t.Errorf("conflict should name the in-flight source, got %v", resp["source"])
	}
}

func TestRunStatusIdle(t *testing.T) {
	w := doRequest(newTestServer(), http.MethodGet, "/api/run/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "idle" {
		t.Errorf("status = %v; want idle", resp["status"])
	}
}

func TestRunStatusRunning(t *testing.T) {
	s := newTestServer()
	s.tryAcquire("all")

	w := doRequest(s, http.MethodGet, "/api/run/status", "", nil)
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "running" || resp["source"] != "all" {
		t.Errorf("status = %v", resp)
	}
}

func TestRunStatusAfterCompletion(t *testing.T) {
	s := newTestServer()
	s.state.lastStatus = runner.StatusSuccess
	s.state.lastSource = "komornik"
	s.state.lastFound = 12
	s.state.lastUpserted = 11

	w := doRequest(s, http.MethodGet, "/api/run/status", "", nil)
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "success" || resp["found"] != float64(12) || resp["upserted"] != float64(11) {
		t.Errorf("status = %v", resp)
	}
}
