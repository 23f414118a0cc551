package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// CityIndex keeps an Elasticsearch index of city names for autocomplete.
type CityIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewCityIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *CityIndex {
	return &CityIndex{es: es, index: index, logger: logger}
}

// cityMapping keeps the exact name as a keyword so prefixes match whole names.
const cityMapping = `{
  "mappings": {
    "properties": {
      "id":   {"type": "long"},
      "name": {"type": "text", "fields": {"keyword": {"type": "keyword", "ignore_above": 256}}}
    }
  }
}`

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (c *CityIndex) EnsureIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{c.index}}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("es index exists: %w", err)
	}
	_ = res.Body.Close()
	switch res.StatusCode {
	case 200:
		return nil
	case 404:
	default:
		return fmt.Errorf("es index exists: %s", res.Status())
	}

	res, err = esapi.IndicesCreateRequest{Index: c.index, Body: strings.NewReader(cityMapping)}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("es create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es create index: %s", res.Status())
	}
	if c.logger != nil {
		c.logger.WithField("index", c.index).Info("created city index")
	}
	return nil
}

type cityDoc struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// IndexCity upserts a city document keyed by its id.
func (c *CityIndex) IndexCity(ctx context.Context, city entity.City) error {
	b, err := json.Marshal(cityDoc{ID: city.ID, Name: city.Name})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: strconv.FormatInt(city.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("es index city: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index city: %s", res.Status())
	}
	return nil
}

// Suggest returns up to size cities whose name starts with prefix.
func (c *CityIndex) Suggest(ctx context.Context, prefix string, size int) ([]entity.City, error) {
	query := map[string]any{
		"query": map[string]any{
			// whole-name prefix, like the database ILIKE 'prefix%'
			"prefix": map[string]any{
				"name.keyword": map[string]any{"value": prefix, "case_insensitive": true},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("es search cities: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search cities: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source cityDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode es response: %w", err)
	}

	out := make([]entity.City, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, entity.City{ID: h.Source.ID, Name: h.Source.Name})
	}
	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{"prefix": prefix, "hits": len(out)}).Debug("city suggest")
	}
	return out, nil
}
