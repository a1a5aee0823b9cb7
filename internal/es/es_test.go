package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/sweetshop/internal/models"
)

// fakeES answers the handful of endpoints Index uses.
type fakeES struct {
	mu        sync.Mutex
	created   bool
	docs      map[string]json.RawMessage
	lastQuery map[string]any
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`)
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
		}
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.created = true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.docs[parts[2]] = b
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
		if _, ok := f.docs[parts[2]]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		delete(f.docs, parts[2])
		_, _ = io.WriteString(w, `{"result":"deleted"}`)
	case len(parts) == 2 && parts[1] == "_search":
		var q map[string]any
		_ = json.NewDecoder(r.Body).Decode(&q)
		f.lastQuery = q
		text := strings.ToLower(q["query"].(map[string]any)["multi_match"].(map[string]any)["query"].(string))

		hits := make([]map[string]any, 0)
		for _, doc := range f.docs {
			if strings.Contains(strings.ToLower(string(doc)), text) {
				hits = append(hits, map[string]any{"_source": doc})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{
				"total": map[string]any{"value": len(hits), "relation": "eq"},
				"hits":  hits,
			},
		})
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unexpected request"}`)
	}
}

func newFakeIndex(t *testing.T) (*Index, *fakeES) {
	t.Helper()
	fake := &fakeES{docs: map[string]json.RawMessage{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)
	return NewIndex(client, ""), fake
}

func TestIndex_PutSearchDelete(t *testing.T) {
	ix, fake := newFakeIndex(t)
	ctx := context.Background()
	assert.Equal(t, "sweets", ix.Name)

	require.NoError(t, ix.Ensure(ctx))
	assert.True(t, fake.created)
	require.NoError(t, ix.Ensure(ctx))

	choco := &models.Sweet{ID: uuid.New(), Name: "Choco Bar", Category: "Chocolate", Price: 5, Quantity: 3}
	gummy := &models.Sweet{ID: uuid.New(), Name: "Gummy Bears", Category: "Candy", Price: 2, Quantity: 1}
	require.NoError(t, ix.Put(ctx, choco))
	require.NoError(t, ix.Put(ctx, gummy))

	total, items, err := ix.Search(ctx, "gummy", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, gummy.ID, items[0].ID)
	assert.Equal(t, "Gummy Bears", items[0].Name)

	mm := fake.lastQuery["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.ElementsMatch(t, []any{"name^2", "category", "description"}, mm["fields"])
	assert.EqualValues(t, 10, fake.lastQuery["size"])

	require.NoError(t, ix.Delete(ctx, gummy.ID))
	require.NoError(t, ix.Delete(ctx, gummy.ID))

	total, _, err = ix.Search(ctx, "gummy", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestNewClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
	}))
	defer srv.Close()

	_, err := NewClient(context.Background(), Config{URL: srv.URL})
	assert.ErrorIs(t, err, ErrResponse)
}
