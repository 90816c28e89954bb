package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

// ESStore indexes events into Elasticsearch and serves the audit search endpoint.
type ESStore struct {
	es    *elasticsearch.Client
	index string
}

func NewESStore(es *elasticsearch.Client, index string) *ESStore {
	return &ESStore{es: es, index: index}
}

func (s *ESStore) Write(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: encode event: %w", err)
	}

	res, err := s.es.Index(s.index, bytes.NewReader(body),
		s.es.Index.WithContext(ctx),
		s.es.Index.WithDocumentID(e.ID),
	)
	if err != nil {
		return fmt.Errorf("audit: index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("audit: index event: %s: %s", res.Status(), msg)
	}
	return nil
}

type Query struct {
	Text   string
	UserID string
	Type   string
	From   int
	Size   int
}

func (q Query) body() map[string]any {
	var must []any
	if q.Text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  q.Text,
				"fields": []string{"reason^2", "type", "role", "requested_role", "resource"},
			},
		})
	}

	var filter []any
	if q.UserID != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"user_id.keyword": q.UserID}})
	}
	if q.Type != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"type.keyword": q.Type}})
	}

	boolQ := map[string]any{}
	if len(must) == 0 {
		boolQ["must"] = []any{map[string]any{"match_all": map[string]any{}}}
	} else {
		boolQ["must"] = must
	}
	if len(filter) > 0 {
		boolQ["filter"] = filter
	}

	return map[string]any{
		"query": map[string]any{"bool": boolQ},
		"sort":  []any{map[string]any{"at": map[string]any{"order": "desc"}}},
		"from":  q.From,
		"size":  q.Size,
	}
}

// Search returns the total hit count and one page of events, newest first.
func (s *ESStore) Search(ctx context.Context, q Query) (int64, []Event, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(q.body()); err != nil {
		return 0, nil, fmt.Errorf("audit: encode query: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(&buf),
		s.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("audit: search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, fmt.Errorf("audit: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Event `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("audit: decode search: %w", err)
	}

	events := make([]Event, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		events[i] = hit.Source
	}
	return r.Hits.Total.Value, events, nil
}
