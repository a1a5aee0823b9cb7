// Package es mirrors the sweet catalogue into Elasticsearch for free-text
// search. The relational store stays the source of truth; the index may lag.
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/google/uuid"

	"github.com/Skotchmaster/sweetshop/internal/models"
)

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

func NewClient(ctx context.Context, cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("info", res)
	}
	return client, nil
}

type Index struct {
	Client *elasticsearch.Client
	Name   string
}

func NewIndex(client *elasticsearch.Client, name string) *Index {
	if name == "" {
		name = "sweets"
	}
	return &Index{Client: client, Name: name}
}

const mapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "name":        {"type": "text"},
      "category":    {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "description": {"type": "text"},
      "price":       {"type": "double"},
      "quantity":    {"type": "integer"},
      "createdAt":   {"type": "date"},
      "updatedAt":   {"type": "date"}
    }
  }
}`

// Ensure creates the index when it does not exist yet.
func (ix *Index) Ensure(ctx context.Context) error {
	res, err := ix.Client.Indices.Exists([]string{ix.Name}, ix.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: exists %s: %w", ix.Name, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = ix.Client.Indices.Create(ix.Name,
		ix.Client.Indices.Create.WithContext(ctx),
		ix.Client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("es: create %s: %w", ix.Name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

func (ix *Index) Put(ctx context.Context, s *models.Sweet) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("es: marshal sweet: %w", err)
	}
	res, err := ix.Client.Index(ix.Name, bytes.NewReader(body),
		ix.Client.Index.WithContext(ctx),
		ix.Client.Index.WithDocumentID(s.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("es: index %s: %w", s.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res)
	}
	return nil
}

// Delete treats a missing document as already deleted.
func (ix *Index) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := ix.Client.Delete(ix.Name, id.String(), ix.Client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: delete %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.Sweet `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (ix *Index) Search(ctx context.Context, query string, from, size int) (int64, []models.Sweet, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "category", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := ix.Client.Search(
		ix.Client.Search.WithContext(ctx),
		ix.Client.Search.WithIndex(ix.Name),
		ix.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res)
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode search: %w", err)
	}

	items := make([]models.Sweet, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		items[i] = hit.Source
	}
	return r.Hits.Total.Value, items, nil
}

var ErrResponse = errors.New("es: error response")

func responseError(op string, res *esapi.Response) error {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
	return fmt.Errorf("%w: %s %s: %s", ErrResponse, op, res.Status(), bytes.TrimSpace(b))
}
