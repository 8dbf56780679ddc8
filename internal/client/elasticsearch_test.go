package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ioc-radar/backend/internal/config"
	"github.com/ioc-radar/backend/internal/db"
	"github.com/ioc-radar/backend/internal/logger"
	"github.com/ioc-radar/backend/internal/model"
)

func newTestElasticsearch(t *testing.T, handler http.HandlerFunc) *Elasticsearch {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := NewElasticsearch(config.FeedConfig{
		ElasticsearchAddresses: []string{srv.URL},
		ElasticsearchIndex:     "cyber_alerts",
	}, logger.Discard())
	require.NoError(t, err)
	return es
}

func TestBuildAlertSearch(t *testing.T) {
	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	body := buildAlertSearch(model.AlertQuery{Since: since, Keywords: []string{"hospital", " "}, Limit: 20})

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	s := string(raw)

	require.Contains(t, s, `"size":20`)
	require.Contains(t, s, `"gte":"2024-02-01T00:00:00Z"`)
	require.Contains(t, s, `"query":"hospital"`)
	require.Contains(t, s, `"minimum_should_match":1`)
	require.Equal(t, 1, strings.Count(s, "multi_match"))

	all := buildAlertSearch(model.AlertQuery{})
	raw, _ = json.Marshal(all)
	require.Contains(t, string(raw), "match_all")
	require.Contains(t, string(raw), `"size":10000`)
}

func TestElasticsearchListAlerts(t *testing.T) {
	var gotPath, gotBody string
	es := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_source":{"id":"a-1","summary":"Citrix RCE","cvss":9.8,"published":"2024-02-02T10:00:00Z"}}]}}`)
	})

	alerts, err := es.ListAlerts(context.Background(), model.AlertQuery{Limit: 10})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(gotPath, "/cyber_alerts/_search"), gotPath)
	require.Contains(t, gotBody, "published")
	require.Len(t, alerts, 1)
	require.Equal(t, "a-1", alerts[0].ID)
	require.Equal(t, 9.8, alerts[0].CVSS)
	require.Equal(t, time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC), alerts[0].Published.UTC())
}

func TestElasticsearchGetAlertNotFound(t *testing.T) {
	es := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"_index":"cyber_alerts","_id":"missing","found":false}`)
	})

	_, err := es.GetAlert(context.Background(), "missing")
	require.True(t, errors.Is(err, db.ErrNotFound))
}

func TestElasticsearchSearchError(t *testing.T) {
	es := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	})

	_, err := es.ListAlerts(context.Background(), model.AlertQuery{})
	require.Error(t, err)
}
