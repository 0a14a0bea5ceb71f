package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"probate-workers/internal/assets"
	"probate-workers/internal/common/config"
	"probate-workers/internal/common/logger"
	"probate-workers/internal/models"
	analyzedocument "probate-workers/internal/workers/asset-discovery/analyze-document"
	discovercaseassets "probate-workers/internal/workers/asset-discovery/discover-case-assets"
	searchcaseassets "probate-workers/internal/workers/asset-discovery/search-case-assets"
	advancecasephase "probate-workers/internal/workers/case/advance-case-phase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type fakeAnalyzer struct {
	got    *analyzedocument.Input
	output *analyzedocument.Output
	err    error
}

func (f *fakeAnalyzer) Execute(_ context.Context, in *analyzedocument.Input) (*analyzedocument.Output, error) {
	f.got = in
	return f.output, f.err
}

type fakeDiscovery struct {
	got       *discovercaseassets.Input
	output    *discovercaseassets.Output
	err       error
	latest    *discovercaseassets.Output
	latestErr error
}

func (f *fakeDiscovery) Execute(_ context.Context, in *discovercaseassets.Input) (*discovercaseassets.Output, error) {
	f.got = in
	return f.output, f.err
}

func (f *fakeDiscovery) Latest(_ context.Context, _ string) (*discovercaseassets.Output, error) {
	return f.latest, f.latestErr
}

type fakeCases struct {
	c   *models.Case
	err error
}

func (f *fakeCases) Summary(_ context.Context, _ string) (*models.Case, error) {
	return f.c, f.err
}

type fakeSearch struct {
	got    *searchcaseassets.Input
	output *searchcaseassets.Output
	err    error
}

func (f *fakeSearch) Execute(_ context.Context, in *searchcaseassets.Input) (*searchcaseassets.Output, error) {
	f.got = in
	return f.output, f.err
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Port:           0,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		MaxBodyBytes:   1 << 20,
	}
}

func newTestServer(t *testing.T, deps Dependencies) *httptest.Server {
	srv := httptest.NewServer(NewServer(testServerConfig(), deps, logger.NewTestLogger(t)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// ==========================
// Analyze document
// ==========================

func TestAnalyzeDocument_Success(t *testing.T) {
	analyzer := &fakeAnalyzer{output: &analyzedocument.Output{
		Success: true,
		Analysis: models.Analysis{
			Assets: []assets.AssetRecord{{Type: assets.TypeBankAccount, Institution: "Chase"}},
			Summary: models.AnalysisSummary{
				TotalAssetsFound: 1,
				Recommendations:  []string{assets.RecommendBankAccount},
			},
		},
	}}
	srv := newTestServer(t, Dependencies{Analyzer: analyzer})

	resp, body := postJSON(t, srv.URL+"/api/analyze-document",
		`{"documentText":"Chase checking ****1234","documentType":"Bank Statement","documentName":"chase.pdf"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	analysis := body["analysis"].(map[string]interface{})
	assert.Len(t, analysis["assets"], 1)
	assert.NotContains(t, body, "rawResponse")

	assert.Equal(t, "chase.pdf", analyzer.got.DocumentName)
	assert.Equal(t, "Bank Statement", analyzer.got.DocumentType)
}

func TestAnalyzeDocument_LegacyTaxReturnAlias(t *testing.T) {
	analyzer := &fakeAnalyzer{output: &analyzedocument.Output{Success: true}}
	srv := newTestServer(t, Dependencies{Analyzer: analyzer})

	resp, _ := postJSON(t, srv.URL+"/api/analyze-tax-return", `{"taxReturnText":"1099-INT from Ally Bank","year":2023}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1099-INT from Ally Bank", analyzer.got.TaxReturnText)
	assert.Equal(t, "2023", analyzer.got.YearString())
}

func TestAnalyzeDocument_ManualReviewIsStillOK(t *testing.T) {
	analyzer := &fakeAnalyzer{output: &analyzedocument.Output{
		Success: true,
		Analysis: models.Analysis{
			Assets:  []assets.AssetRecord{},
			Summary: models.AnalysisSummary{Recommendations: []string{"Manual review required - automated analysis could not structure this document"}},
		},
		RawResponse:  "I could not find any accounts.",
		ManualReview: true,
	}}
	srv := newTestServer(t, Dependencies{Analyzer: analyzer})

	resp, body := postJSON(t, srv.URL+"/api/analyze-document", `{"documentText":"blurry scan"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "I could not find any accounts.", body["rawResponse"])
	assert.NotContains(t, body, "ManualReview")
}

func TestAnalyzeDocument_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"missing text", `{"documentType":"Bank Statement"}`, nil, http.StatusBadRequest, "Document text is required"},
		{"blank text", `{"documentText":"   "}`, nil, http.StatusBadRequest, "Document text is required"},
		{"wrong type", `{"documentText":42}`, nil, http.StatusBadRequest, "Document text is required"},
		{"malformed json", `{"documentText":`, nil, http.StatusBadRequest, "Document text is required"},
		{"model timeout", `{"documentText":"x"}`, fmt.Errorf("%w: x", analyzedocument.ErrAnalysisTimeout), http.StatusBadGateway, "Failed to analyze document"},
		{"model failure", `{"documentText":"x"}`, fmt.Errorf("%w: 500", analyzedocument.ErrAnalysisFailed), http.StatusBadGateway, "Failed to analyze document"},
		{"unexpected", `{"documentText":"x"}`, errors.New("boom"), http.StatusInternalServerError, "Failed to analyze document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Dependencies{Analyzer: &fakeAnalyzer{err: tt.err, output: &analyzedocument.Output{Success: true}}})

			resp, body := postJSON(t, srv.URL+"/api/analyze-document", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestAnalyzeDocument_BodyTooLarge(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxBodyBytes = 64
	srv := httptest.NewServer(NewServer(cfg, Dependencies{Analyzer: &fakeAnalyzer{}}, logger.NewNoOpLogger()).Handler())
	defer srv.Close()

	payload := fmt.Sprintf(`{"documentText":%q}`, strings.Repeat("a", 256))
	resp, body := postJSON(t, srv.URL+"/api/analyze-document", payload)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "request body too large", body["error"])
}

// ==========================
// Cases and discovery
// ==========================

func TestRunDiscovery(t *testing.T) {
	discovery := &fakeDiscovery{output: &discovercaseassets.Output{CaseID: "case-1", StatusMessage: "2 of 2 documents analyzed"}}
	srv := newTestServer(t, Dependencies{Discovery: discovery})

	resp, body := postJSON(t, srv.URL+"/api/cases/case-1/asset-discovery", `{"documentIds":["d1","d2"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2 of 2 documents analyzed", body["statusMessage"])
	assert.Equal(t, "case-1", discovery.got.CaseID)
	assert.Equal(t, []string{"d1", "d2"}, discovery.got.DocumentIDs)

	resp, _ = postJSON(t, srv.URL+"/api/cases/case-2/asset-discovery", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "case-2", discovery.got.CaseID)
	assert.Empty(t, discovery.got.DocumentIDs)

	resp, _ = postJSON(t, srv.URL+"/api/cases/case-1/asset-discovery", `{"caseId":"other"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunDiscovery_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"case not found", fmt.Errorf("%w: case-1", discovercaseassets.ErrCaseNotFound), http.StatusNotFound},
		{"timeout", discovercaseassets.ErrDiscoveryTimeout, http.StatusBadGateway},
		{"persist", discovercaseassets.ErrPersistFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Dependencies{Discovery: &fakeDiscovery{err: tt.err}})
			resp, body := postJSON(t, srv.URL+"/api/cases/case-1/asset-discovery", "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestLatestAssets(t *testing.T) {
	srv := newTestServer(t, Dependencies{Discovery: &fakeDiscovery{
		latest: &discovercaseassets.Output{CaseID: "case-1", DocumentsTotal: 3, DocumentsAnalyzed: 3},
	}})
	resp, body := getJSON(t, srv.URL+"/api/cases/case-1/assets")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "case-1", body["caseId"])

	srv = newTestServer(t, Dependencies{Discovery: &fakeDiscovery{latestErr: discovercaseassets.ErrNoDiscovery}})
	resp, _ = getJSON(t, srv.URL+"/api/cases/case-1/assets")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCaseSummary(t *testing.T) {
	srv := newTestServer(t, Dependencies{Cases: &fakeCases{c: &models.Case{
		ID:           "case-1",
		DecedentName: "Harold James Whitfield",
		Phase:        models.PhaseAssetDiscovery,
	}}})
	resp, body := getJSON(t, srv.URL+"/api/cases/case-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Harold James Whitfield", body["decedentName"])

	srv = newTestServer(t, Dependencies{Cases: &fakeCases{err: advancecasephase.ErrCaseNotFound}})
	resp, _ = getJSON(t, srv.URL+"/api/cases/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ==========================
// Search
// ==========================

func TestSearch(t *testing.T) {
	search := &fakeSearch{output: &searchcaseassets.Output{
		Data:      []map[string]interface{}{{"institution": "Chase"}},
		TotalHits: 1,
	}}
	srv := newTestServer(t, Dependencies{Search: search})

	resp, body := getJSON(t, srv.URL+"/api/assets/search?institution=chase&type=bank&caseId=c1&q=checking&size=5&from=10")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["totalHits"])

	assert.Equal(t, "chase", search.got.Institution)
	assert.Equal(t, "bank", search.got.Type)
	assert.Equal(t, "c1", search.got.CaseID)
	assert.Equal(t, "checking", search.got.Query)
	assert.Equal(t, 5, search.got.Pagination.Size)
	assert.Equal(t, 10, search.got.Pagination.From)
}

func TestSearch_Errors(t *testing.T) {
	srv := newTestServer(t, Dependencies{Search: &fakeSearch{}})
	resp, _ := getJSON(t, srv.URL+"/api/assets/search?size=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	srv = newTestServer(t, Dependencies{Search: &fakeSearch{err: searchcaseassets.ErrIndexNotFound}})
	resp, _ = getJSON(t, srv.URL+"/api/assets/search")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	srv = newTestServer(t, Dependencies{Search: &fakeSearch{err: searchcaseassets.ErrSearchQueryFailed}})
	resp, _ = getJSON(t, srv.URL+"/api/assets/search")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

// ==========================
// Operational endpoints and middleware
// ==========================

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Dependencies{Checks: map[string]func(context.Context) error{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}})

	resp, body := getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = getJSON(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "not_ready", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Equal(t, "connection refused", checks["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, Dependencies{})
	_, _ = getJSON(t, srv.URL+"/health")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), "probate_http_requests_total")
}

func TestUnconfiguredDependency(t *testing.T) {
	srv := newTestServer(t, Dependencies{})
	resp, body := postJSON(t, srv.URL+"/api/analyze-document", `{"documentText":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestRateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 2
	srv := httptest.NewServer(NewServer(cfg, Dependencies{}, logger.NewNoOpLogger()).Handler())
	defer srv.Close()

	for i := 0; i < 2; i++ {
		resp, _ := getJSON(t, srv.URL+"/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Too Many Requests", body["error"])
}
