package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ioc-radar/backend/internal/cache"
	"github.com/ioc-radar/backend/internal/config"
	"github.com/ioc-radar/backend/internal/logger"
	"github.com/ioc-radar/backend/internal/model"
)

type recordingNotifier struct {
	alerts chan model.Alert
}

func (n *recordingNotifier) NotifyAlert(_ context.Context, alert model.Alert) (int, error) {
	n.alerts <- alert
	return 1, nil
}

var testNow = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

func testDashboardConfig() config.DashboardConfig {
	return config.DashboardConfig{
		FetchTimeout:    time.Second,
		FetchLimit:      1000,
		DefaultPageSize: 10,
		MaxPageSize:     100,
	}
}

func newTestAlertService(store *fakeAlertStore, notifier alertNotifier) (*AlertService, *cache.Memory) {
	mem := cache.NewMemory()
	svc := NewAlertService(store, mem, notifier, testDashboardConfig(), time.Minute, logger.Discard())
	svc.now = func() time.Time { return testNow }
	return svc, mem
}

func TestIngestValidation(t *testing.T) {
	svc, _ := newTestAlertService(&fakeAlertStore{}, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  model.CreateAlertRequest
	}{
		{"missing summary", model.CreateAlertRequest{Summary: "  ", CVSS: 5}},
		{"cvss above 10", model.CreateAlertRequest{Summary: "x", CVSS: 10.5}},
		{"negative cvss", model.CreateAlertRequest{Summary: "x", CVSS: -1}},
		{"non uuid id", model.CreateAlertRequest{ID: "CVE-2024-1", Summary: "x", CVSS: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Ingest(ctx, tc.req)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestIngestAssignsDefaultsAndNotifies(t *testing.T) {
	store := &fakeAlertStore{}
	notifier := &recordingNotifier{alerts: make(chan model.Alert, 1)}
	svc, mem := newTestAlertService(store, notifier)
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "alerts:{}", []byte("{}"), 0))
	require.NoError(t, mem.Set(ctx, "dashboard:7:{}", []byte("{}"), 0))
	require.NoError(t, mem.Set(ctx, "other:{}", []byte("{}"), 0))

	alert, err := svc.Ingest(ctx, model.CreateAlertRequest{Summary: " OpenSSL flaw ", CVSS: 9.8})
	require.NoError(t, err)
	_, err = uuid.Parse(alert.ID)
	require.NoError(t, err)
	require.Equal(t, "OpenSSL flaw", alert.Summary)
	require.True(t, alert.Published.Equal(testNow))

	require.False(t, mem.Contains("alerts:{}"))
	require.False(t, mem.Contains("dashboard:7:{}"))
	require.True(t, mem.Contains("other:{}"))

	select {
	case notified := <-notifier.alerts:
		require.Equal(t, alert.ID, notified.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestIngestDuplicateID(t *testing.T) {
	svc, _ := newTestAlertService(&fakeAlertStore{}, nil)
	ctx := context.Background()
	id := uuid.NewString()

	_, err := svc.Ingest(ctx, model.CreateAlertRequest{ID: id, Summary: "first", CVSS: 3})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, model.CreateAlertRequest{ID: id, Summary: "again", CVSS: 3})
	require.ErrorIs(t, err, ErrConflict)
}

func TestListFiltersByIndustryAndRange(t *testing.T) {
	store := &fakeAlertStore{alerts: []model.Alert{
		{ID: "a", Summary: "Hospital ransomware wave", CVSS: 8, Published: testNow.Add(-time.Hour)},
		{ID: "b", Summary: "Banking trojan", CVSS: 7, Published: testNow.Add(-2 * time.Hour)},
		{ID: "c", Summary: "Medical device flaw", CVSS: 6, Published: testNow.AddDate(0, 0, -20)},
		{ID: "d", Summary: "Patient portal leak", CVSS: 5, Published: testNow.Add(time.Hour)},
	}}
	svc, _ := newTestAlertService(store, nil)
	ctx := context.Background()

	resp, err := svc.List(ctx, model.AlertFilter{Industry: "santé", Range: "week"})
	require.NoError(t, err)
	require.Equal(t, "week", resp.Range)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "a", resp.Items[0].ID)
	require.Equal(t, model.PageInfo{Page: 1, PageSize: 10, Total: 1, TotalPages: 1}, resp.Page)
	require.Contains(t, store.queries[0].Keywords, "hospital")

	all, err := svc.List(ctx, model.AlertFilter{})
	require.NoError(t, err)
	require.Equal(t, 4, all.Page.Total)
	require.Empty(t, store.queries[1].Keywords)

	_, err = svc.List(ctx, model.AlertFilter{Range: "decade"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestListIndustryShortKeywordsMatchWholeWords(t *testing.T) {
	store := &fakeAlertStore{alerts: []model.Alert{
		{ID: "a", Summary: "Critical security update for kernel", CVSS: 8, Published: testNow.Add(-time.Hour)},
		{ID: "b", Summary: "AI assistant prompt injection", CVSS: 6, Published: testNow.Add(-2 * time.Hour)},
		{ID: "c", Summary: "Cloud console takeover", CVSS: 7, Published: testNow.Add(-3 * time.Hour)},
	}}
	svc, _ := newTestAlertService(store, nil)

	resp, err := svc.List(context.Background(), model.AlertFilter{Industry: "technology"})
	require.NoError(t, err)
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.ID)
	}
	require.Equal(t, []string{"b", "c"}, ids)
	require.Equal(t, 2, resp.Page.Total)
}

func TestListIsCached(t *testing.T) {
	store := &fakeAlertStore{alerts: []model.Alert{
		{ID: "a", Summary: "x", CVSS: 1, Published: testNow.Add(-time.Hour)},
	}}
	svc, _ := newTestAlertService(store, nil)
	ctx := context.Background()

	first, err := svc.List(ctx, model.AlertFilter{Page: 1, PageSize: 5})
	require.NoError(t, err)
	second, err := svc.List(ctx, model.AlertFilter{Page: 1, PageSize: 5})
	require.NoError(t, err)

	require.Equal(t, 1, store.listCalls())
	require.Equal(t, first.Page, second.Page)
	require.Equal(t, first.Items[0].ID, second.Items[0].ID)
}

func TestGetAlertNotFound(t *testing.T) {
	svc, _ := newTestAlertService(&fakeAlertStore{}, nil)
	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	day1 := time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeAlertStore{alerts: []model.Alert{
		{ID: "a", Summary: "a", CVSS: 9.8, Published: day1},
		{ID: "b", Summary: "b", CVSS: 7.2, Published: day1},
		{ID: "c", Summary: "c", CVSS: 4.0, Published: day2},
		{ID: "d", Summary: "d", CVSS: 10, Published: day2},
		{ID: "e", Summary: "e", CVSS: 1.5, Published: day2},
	}}
	svc, _ := newTestAlertService(store, nil)

	stats, err := svc.Stats(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 5, stats.Total)
	require.Equal(t, model.SeverityStats{Critical: 2, High: 1, Medium: 1, Low: 1}, stats.Severity)

	require.Len(t, stats.Timeline, 2)
	require.Equal(t, model.TimelinePoint{Date: "2024-05-09", Count: 2, AvgCVSS: 8.5}, stats.Timeline[0])
	require.Equal(t, "2024-05-10", stats.Timeline[1].Date)
	require.Equal(t, 3, stats.Timeline[1].Count)

	require.Len(t, stats.Distribution, 11)
	require.Equal(t, 1, stats.Distribution[9].Count)
	require.Equal(t, 1, stats.Distribution[10].Count)
	require.Equal(t, 1, stats.Distribution[1].Count)
	require.Equal(t, 0, stats.Distribution[0].Count)
}

func TestClampPageSize(t *testing.T) {
	cfg := config.DashboardConfig{DefaultPageSize: 20, MaxPageSize: 50}
	tests := []struct {
		requested int
		want      int
	}{
		{0, 20},
		{-3, 20},
		{30, 30},
		{500, 50},
	}
	for _, tt := range tests {
		if got := clampPageSize(cfg, tt.requested); got != tt.want {
			t.Fatalf("clampPageSize(%d) = %d, want %d", tt.requested, got, tt.want)
		}
	}
	if got := clampPageSize(config.DashboardConfig{}, 0); got != 10 {
		t.Fatalf("zero config default = %d, want 10", got)
	}
	if got := clampPageSize(config.DashboardConfig{MaxPageSize: 1000}, 1000); got != 100 {
		t.Fatalf("max page size must not exceed 100, got %d", got)
	}
}
