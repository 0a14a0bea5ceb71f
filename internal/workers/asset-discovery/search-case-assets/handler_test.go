package searchcaseassets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"probate-workers/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeES(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func newTestHandler(t *testing.T, client *elasticsearch.Client) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second, Index: "case-assets"}, client, logger.NewTestLogger(t))
}

// ==========================
// Execute
// ==========================

func TestExecute_ReturnsSources(t *testing.T) {
	var sent map[string]interface{}
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/case-assets/_search", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &sent))

		_, _ = w.Write([]byte(`{"took":2,"hits":{"total":{"value":2},"max_score":1.7,"hits":[
			{"_id":"c1-0","_source":{"caseId":"c1","institution":"Chase","type":"Bank Account"}},
			{"_id":"c2-3","_source":{"caseId":"c2","institution":"Chase Bank","type":"Bank Account"}}
		]}}`))
	})

	out, err := newTestHandler(t, client).Execute(context.Background(), &Input{
		Institution: "chase",
		Type:        "checking",
		Pagination:  Pagination{Size: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), out.TotalHits)
	assert.InDelta(t, 1.7, out.MaxScore, 0.0001)
	require.Len(t, out.Data, 2)
	assert.Equal(t, "c2", out.Data[1]["caseId"])

	filter := sent["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"type": "Bank Account"}}, filter[0])
}

func TestExecute_EmptyResult(t *testing.T) {
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":0},"max_score":null,"hits":[]}}`))
	})

	out, err := newTestHandler(t, client).Execute(context.Background(), &Input{CaseID: "c9"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.TotalHits)
	assert.Empty(t, out.Data)
	assert.NotNil(t, out.Data)
}

func TestExecute_Errors(t *testing.T) {
	t.Run("index missing", func(t *testing.T) {
		client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"},"status":404}`))
		})
		h := newTestHandler(t, client)

		_, err := h.Execute(context.Background(), &Input{})
		assert.ErrorIs(t, err, ErrIndexNotFound)
		assert.Equal(t, "INDEX_NOT_FOUND", string(h.toStandardError(err).Code))
	})

	t.Run("cluster error", func(t *testing.T) {
		client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"parsing_exception"},"status":400}`))
		})
		h := newTestHandler(t, client)

		_, err := h.Execute(context.Background(), &Input{Query: "x"})
		assert.ErrorIs(t, err, ErrSearchQueryFailed)
		stdErr := h.toStandardError(err)
		assert.Equal(t, "SEARCH_QUERY_FAILED", string(stdErr.Code))
		assert.True(t, stdErr.Retryable)
	})

	t.Run("nil input", func(t *testing.T) {
		_, err := newTestHandler(t, nil).Execute(context.Background(), nil)
		assert.Error(t, err)
	})
}
