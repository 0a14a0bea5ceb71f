package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"probate-workers/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Postgres
// ==========================

func TestWithTx_Commits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE cases`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE cases SET phase = 'Closing'`)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithTx(context.Background(), db, func(tx *sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	client := &PostgresClient{DB: db}
	require.NoError(t, client.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDSN(t *testing.T) {
	cfg := config.PostgresConfig{Host: "db", Port: 5432, User: "probate", Password: "pw", Database: "cases", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=probate password=pw dbname=cases sslmode=require", cfg.GetDSN())
}

// ==========================
// Redis
// ==========================

func TestJSONRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	type payload struct {
		CaseID string   `json:"caseId"`
		Docs   []string `json:"docs"`
	}

	require.NoError(t, SetJSON(ctx, rdb, "probate:test", payload{CaseID: "c1", Docs: []string{"a"}}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("probate:test"))

	var got payload
	require.NoError(t, GetJSON(ctx, rdb, "probate:test", &got))
	assert.Equal(t, "c1", got.CaseID)

	assert.ErrorIs(t, GetJSON(ctx, rdb, "probate:missing", &got), ErrCacheMiss)

	mr.Set("probate:corrupt", "{not json")
	err := GetJSON(ctx, rdb, "probate:corrupt", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

// ==========================
// Elasticsearch
// ==========================

func newFakeES(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: server.URL})
	require.NoError(t, err)
	return client
}

func TestBulkIndex_WritesNDJSON(t *testing.T) {
	var lines []string
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/case-assets/_bulk", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("refresh"))
		body, _ := io.ReadAll(r.Body)
		lines = strings.Split(strings.TrimSpace(string(body)), "\n")
		_, _ = w.Write([]byte(`{"took":3,"errors":false,"items":[]}`))
	})

	err := client.BulkIndex(context.Background(), "case-assets", []IndexDoc{
		{ID: "c1-0", Body: map[string]string{"institution": "Chase"}},
		{ID: "c1-1", Body: map[string]string{"institution": "Fidelity"}},
	})
	require.NoError(t, err)
	require.Len(t, lines, 4)

	var meta map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &meta))
	assert.Equal(t, "c1-0", meta["index"]["_id"])
	assert.JSONEq(t, `{"institution":"Fidelity"}`, lines[3])
}

func TestBulkIndex_ItemErrors(t *testing.T) {
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":true,"items":[
			{"index":{"status":201}},
			{"index":{"status":400,"error":{"reason":"mapper_parsing_exception"}}}
		]}`))
	})

	err := client.BulkIndex(context.Background(), "case-assets", []IndexDoc{{ID: "a", Body: 1}, {ID: "b", Body: 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 documents failed: mapper_parsing_exception")
}

func TestBulkIndex_EmptyIsNoop(t *testing.T) {
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL.Path)
	})
	assert.NoError(t, client.BulkIndex(context.Background(), "case-assets", nil))
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	var created bool
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), "keyword")
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}
	})

	require.NoError(t, client.EnsureIndex(context.Background(), "case-assets", `{"mappings":{"properties":{"caseId":{"type":"keyword"}}}}`))
	assert.True(t, created)
}

func TestDeleteByTerm(t *testing.T) {
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/case-assets/_delete_by_query", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":{"term":{"caseId":"c1"}}}`, string(body))
		_, _ = w.Write([]byte(`{"deleted":2}`))
	})
	assert.NoError(t, client.DeleteByTerm(context.Background(), "case-assets", "caseId", "c1"))
}
