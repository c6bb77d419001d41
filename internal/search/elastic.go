// Package search indexes persisted articles into Elasticsearch and
// serves full-text queries over them. Indexing is best-effort: a failure
// never fails the crawl that produced the article.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/harvester/internal/domain"
	"github.com/jonesrussell/harvester/internal/logger"
)

// DefaultIndex is the article index name.
const DefaultIndex = "articles"

// Config holds Elasticsearch connection configuration.
type Config struct {
	// Enabled toggles search indexing for the process.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Addresses lists the cluster endpoints.
	Addresses []string `yaml:"addresses" mapstructure:"addresses"`
	// Index is the article index name.
	Index string `yaml:"index" mapstructure:"index"`
	// Username and Password are optional basic auth credentials.
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Client implements the crawl engine's Indexer contract on Elasticsearch.
type Client struct {
	client *es.Client
	index  string
	logger logger.Interface
}

// New creates a search index client.
func New(cfg Config, log logger.Interface) (*Client, error) {
	client, err := es.NewClient(es.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}

	return &Client{client: client, index: index, logger: log}, nil
}

// articleDocument is the indexed projection of an article.
type articleDocument struct {
	SourceID  string `json:"source_id"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Content   string `json:"content"`
	Depth     int    `json:"depth"`
	CreatedAt string `json:"created_at"`
}

// Index stores one article document keyed by article ID.
func (i *Client) Index(ctx context.Context, article *domain.Article) error {
	doc := articleDocument{
		SourceID:  article.SourceID,
		Title:     article.Title,
		Link:      article.Link,
		Content:   article.Content,
		Depth:     article.Depth,
		CreatedAt: article.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal article document: %w", err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(payload),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(article.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index article: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing article: %s", res.String())
	}

	return nil
}

// Hit is one search result.
type Hit struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Link     string  `json:"link"`
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
}

// Search runs a match query over title and content.
func (i *Client) Search(ctx context.Context, query string, size int) ([]Hit, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "content"},
			},
		},
		"size": size,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source articleDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&parsed); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", decodeErr)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			ID:       h.ID,
			Title:    h.Source.Title,
			Link:     h.Source.Link,
			SourceID: h.Source.SourceID,
			Score:    h.Score,
		})
	}

	return hits, nil
}
