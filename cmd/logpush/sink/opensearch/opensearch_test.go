package opensearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSearchNew_MissingConfig(t *testing.T) {
	if _, err := New(Config{}, "", nil); err == nil {
		t.Fatal("expected error when url or index is missing")
	}
}

// opensearchServer answers the client's cluster info request and hands
// every other request to index.
func opensearchServer(t *testing.T, index http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"node-1","cluster_name":"test","version":{"distribution":"opensearch","number":"2.11.0"},"tagline":"The OpenSearch Project: https://opensearch.org/"}`))
			return
		}
		index(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenSearchPut_IndexesDocument(t *testing.T) {
	var got document
	var path string
	srv := opensearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_index":"logs","_id":"doc-1","result":"created"}`))
	})

	s, err := New(Config{URL: srv.URL, Index: "logs"}, "web-1", map[string]string{"env": "test"})
	require.NoError(t, err)

	rc, err := s.Put(context.Background(), []byte("GET / HTTP/1.1"))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", rc.RecordID)
	assert.True(t, strings.HasPrefix(path, "/logs/_doc"), "path %q", path)
	assert.Equal(t, "GET / HTTP/1.1", got.Message)
	assert.Equal(t, "web-1", got.Host)
	assert.Equal(t, "test", got.Labels["env"])
	assert.NotEmpty(t, got.Timestamp)
}

func TestOpenSearchPut_ErrorStatus(t *testing.T) {
	var indexCalls int
	srv := opensearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		indexCalls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"},"status":400}`))
	})

	s, err := New(Config{URL: srv.URL, Index: "logs"}, "", nil)
	require.NoError(t, err)

	_, err = s.Put(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
	assert.Equal(t, 1, indexCalls)
}
