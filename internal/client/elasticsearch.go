// Elasticsearch 알림 피드 저장소 (FEED_BACKEND=elasticsearch)
// db.Postgres의 알림 조회/저장 메서드와 같은 시그니처를 제공

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/ioc-radar/backend/internal/config"
	"github.com/ioc-radar/backend/internal/db"
	"github.com/ioc-radar/backend/internal/model"
)

const esMaxResultWindow = 10000

const alertIndexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "summary":     {"type": "text"},
      "description": {"type": "text"},
      "cvss":        {"type": "float"},
      "published":   {"type": "date"}
    }
  }
}`

type Elasticsearch struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

func NewElasticsearch(cfg config.FeedConfig, logger *slog.Logger) (*Elasticsearch, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.ElasticsearchAddresses,
		Username:  cfg.ElasticsearchUsername,
		Password:  cfg.ElasticsearchPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Elasticsearch{es: es, index: cfg.ElasticsearchIndex, log: logger}, nil
}

func (c *Elasticsearch) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// EnsureIndex - 인덱스가 없으면 매핑과 함께 생성
func (c *Elasticsearch) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", c.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(alertIndexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", c.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// 다른 인스턴스가 먼저 만든 경우
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index %s failed: %s", c.index, strings.TrimSpace(string(body)))
	}
	c.log.Info("elasticsearch index created", "index", c.index)
	return nil
}

type esAlertDoc struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	CVSS        float64   `json:"cvss"`
	Published   time.Time `json:"published"`
}

func (d esAlertDoc) toModel() model.Alert {
	return model.Alert{ID: d.ID, Summary: d.Summary, Description: d.Description, CVSS: d.CVSS, Published: d.Published}
}

func (c *Elasticsearch) InsertAlert(ctx context.Context, alert model.Alert) error {
	payload, err := json.Marshal(esAlertDoc(alert))
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: alert.ID,
		Body:       bytes.NewReader(payload),
		OpType:     "create",
		Refresh:    "wait_for",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index alert: %w", err)
	}
	defer res.Body.Close()

	// 알림은 불변이므로 같은 id 재전송은 덮어쓰지 않음
	if res.StatusCode == http.StatusConflict {
		return fmt.Errorf("alert %s: %w", alert.ID, db.ErrDuplicate)
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index alert failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

func (c *Elasticsearch) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	res, err := c.es.Get(c.index, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, db.ErrNotFound
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("get alert failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Found  bool       `json:"found"`
		Source esAlertDoc `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	if !parsed.Found {
		return nil, db.ErrNotFound
	}
	alert := parsed.Source.toModel()
	return &alert, nil
}

// ListAlerts - published 내림차순 검색
func (c *Elasticsearch) ListAlerts(ctx context.Context, q model.AlertQuery) ([]model.Alert, error) {
	payload, err := json.Marshal(buildAlertSearch(q))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search alerts: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search alerts failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source esAlertDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	alerts := make([]model.Alert, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		alerts = append(alerts, hit.Source.toModel())
	}
	return alerts, nil
}

func (c *Elasticsearch) CountAlerts(ctx context.Context) (int, error) {
	res, err := c.es.Count(c.es.Count.WithContext(ctx), c.es.Count.WithIndex(c.index))
	if err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("count alerts failed: %s", strings.TrimSpace(string(data)))
	}
	var parsed struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return parsed.Count, nil
}

func buildAlertSearch(q model.AlertQuery) map[string]any {
	size := q.Limit
	if size <= 0 || size > esMaxResultWindow {
		size = esMaxResultWindow
	}

	filters := make([]map[string]any, 0, 2)
	if !q.Since.IsZero() {
		filters = append(filters, map[string]any{
			"range": map[string]any{
				"published": map[string]any{"gte": q.Since.UTC().Format(time.RFC3339)},
			},
		})
	}

	should := make([]map[string]any, 0, len(q.Keywords))
	for _, kw := range q.Keywords {
		if kw = strings.TrimSpace(kw); kw == "" {
			continue
		}
		should = append(should, map[string]any{
			"multi_match": map[string]any{
				"query":  kw,
				"type":   "phrase",
				"fields": []string{"summary", "description"},
			},
		})
	}
	if len(should) > 0 {
		filters = append(filters, map[string]any{
			"bool": map[string]any{
				"should":               should,
				"minimum_should_match": 1,
			},
		})
	}

	boolQuery := map[string]any{}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	} else {
		boolQuery["must"] = []map[string]any{{"match_all": map[string]any{}}}
	}

	return map[string]any{
		"size":  size,
		"query": map[string]any{"bool": boolQuery},
		"sort": []map[string]any{
			{"published": map[string]any{"order": "desc"}},
			{"id": map[string]any{"order": "asc"}},
		},
	}
}
