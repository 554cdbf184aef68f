package typesense

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco-pm/zencart-typesense/internal/domain"
)

// plainDoer executes requests without retries or a breaker.
type plainDoer struct{}

func (plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req.WithContext(ctx))
}

// newTestClient points a client at the test server.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := &Client{baseURL: srv.URL, apiKey: "test-key", http: plainDoer{}}
	return c, srv
}

func TestCreateCollection_SendsSchemaAndAPIKey(t *testing.T) {
	var gotKey string
	var gotSchema CollectionSchema

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/collections", r.URL.Path)
		gotKey = r.Header.Get("X-TYPESENSE-API-KEY")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotSchema))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"name":"products_1"}`))
	})

	err := client.CreateCollection(context.Background(), CollectionSchema{
		Name:   "products_1",
		Fields: []Field{{Name: "model", Type: "string", Infix: true}},
	})

	require.NoError(t, err)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "products_1", gotSchema.Name)
	require.Len(t, gotSchema.Fields, 1)
	assert.True(t, gotSchema.Fields[0].Infix)
}

func TestField_IndexFalseSerialized(t *testing.T) {
	indexed := Field{Name: "model", Type: "string"}
	notIndexed := Field{Name: "price", Type: "float"}
	f := false
	notIndexed.Index = &f

	indexedJSON, err := json.Marshal(indexed)
	require.NoError(t, err)
	assert.NotContains(t, string(indexedJSON), "index")

	notIndexedJSON, err := json.Marshal(notIndexed)
	require.NoError(t, err)
	assert.Contains(t, string(notIndexedJSON), `"index":false`)
}

func TestRetrieveAlias(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/aliases/products", r.URL.Path)
		_, _ = w.Write([]byte(`{"name":"products","collection_name":"products_1700000000"}`))
	})

	collection, err := client.RetrieveAlias(context.Background(), "products")

	require.NoError(t, err)
	assert.Equal(t, "products_1700000000", collection)
}

func TestRetrieveAlias_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, err := client.RetrieveAlias(context.Background(), "products")

	require.ErrorIs(t, err, ErrAliasNotFound)
}

func TestRetrieveCollection_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, err := client.RetrieveCollection(context.Background(), "products_1")

	require.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestStatusError_CarriesServerMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"query malformed"}`))
	})

	err := client.DeleteCollection(context.Background(), "products_1")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Status)
	assert.Contains(t, statusErr.Message, "query malformed")
}

func TestImportDocuments_SendsJSONL(t *testing.T) {
	var gotAction string
	var gotContentType string
	var gotLines []string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/products_1/documents/import", r.URL.Path)
		gotAction = r.URL.Query().Get("action")
		gotContentType = r.Header.Get("Content-Type")

		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			gotLines = append(gotLines, scanner.Text())
		}

		_, _ = w.Write([]byte("{\"success\":true}\n{\"success\":true}\n"))
	})

	docs := []domain.Document{
		{"id": "1", "model": "MG200MMS"},
		{"id": "2", "model": "MG400"},
	}
	err := client.ImportDocuments(context.Background(), "products_1", docs, ImportActionCreate)

	require.NoError(t, err)
	assert.Equal(t, "create", gotAction)
	assert.Equal(t, "text/plain", gotContentType)
	require.Len(t, gotLines, 2)
	assert.Contains(t, gotLines[0], `"id":"1"`)
}

func TestImportDocuments_RejectedDocumentFailsCall(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{\"success\":true}\n{\"success\":false,\"error\":\"field missing\",\"code\":400}\n"))
	})

	err := client.ImportDocuments(context.Background(), "products_1", []domain.Document{{"id": "1"}, {"id": "2"}}, ImportActionUpsert)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "field missing")
}

func TestImportDocuments_EmptyIsNoop(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	err := client.ImportDocuments(context.Background(), "products_1", nil, ImportActionCreate)

	require.NoError(t, err)
	assert.False(t, called)
}

func TestDeleteDocumentsByFilter(t *testing.T) {
	var gotFilter string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		gotFilter = r.URL.Query().Get("filter_by")
		_, _ = w.Write([]byte(`{"num_deleted":3}`))
	})

	deleted, err := client.DeleteDocumentsByFilter(context.Background(), "products_1", "id:[3,17,42]")

	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, "id:[3,17,42]", gotFilter)
}

func TestSynonymRoundTrip(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			require.Equal(t, "/collections/products/synonyms/tv", r.URL.Path)
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &gotBody))
			_, _ = w.Write([]byte(`{"id":"tv"}`))
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"synonyms":[{"id":"tv","synonyms":["tv","television"]}]}`))
		}
	})

	err := client.UpsertSynonym(context.Background(), "products", domain.Synonym{
		ID: "tv", Synonyms: []string{"tv", "television"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"tv", "television"}, gotBody["synonyms"])
	assert.NotContains(t, gotBody, "root")

	synonyms, err := client.ListSynonyms(context.Background(), "products")
	require.NoError(t, err)
	require.Len(t, synonyms, 1)
	assert.Equal(t, "tv", synonyms[0].ID)
}

func TestMultiSearch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/multi_search", r.URL.Path)

		var req struct {
			Searches []SearchParams `json:"searches"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Searches, 2)

		_, _ = w.Write([]byte(`{"results":[
			{"found":1,"hits":[{"document":{"id":"12"}}]},
			{"found":0,"hits":[]}
		]}`))
	})

	results, err := client.MultiSearch(context.Background(), []SearchParams{
		{Collection: "products", Q: "matrox", QueryBy: "name_en"},
		{Collection: "brands", Q: "matrox", QueryBy: "name"},
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Found)
	assert.False(t, results[0].Failed())
}

func TestSearchResult_Failed(t *testing.T) {
	assert.True(t, SearchResult{Code: 404, Error: "Not found"}.Failed())
	assert.True(t, SearchResult{Error: "timed out"}.Failed())
	assert.False(t, SearchResult{Found: 3}.Failed())
}

func TestHealth(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	ok, err := client.Health(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Host: "localhost", Port: 8108, Protocol: "http", APIKey: "k"}
	require.NoError(t, valid.Validate())
	assert.Equal(t, "http://localhost:8108", valid.BaseURL())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing host", Config{Port: 8108, Protocol: "http", APIKey: "k"}},
		{"bad port", Config{Host: "localhost", Port: 0, Protocol: "http", APIKey: "k"}},
		{"bad protocol", Config{Host: "localhost", Port: 8108, Protocol: "ftp", APIKey: "k"}},
		{"missing key", Config{Host: "localhost", Port: 8108, Protocol: "http"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}
