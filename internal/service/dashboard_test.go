package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ioc-radar/backend/internal/cache"
	"github.com/ioc-radar/backend/internal/logger"
	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/relevance"
)

type dashboardFixture struct {
	svc     *DashboardService
	iocs    *fakeIOCRepo
	alerts  *fakeAlertStore
	clients *fakeClientRepo
}

func newDashboardFixture() *dashboardFixture {
	iocs := newFakeIOCRepo()
	iocs.iocs[1] = []model.IOC{{ID: "i1", UserID: 1, IP: "203.0.113.7", Server: "nginx"}}

	alerts := &fakeAlertStore{alerts: []model.Alert{
		{ID: "a", Summary: "Botnet traffic from 203.0.113.7", CVSS: 5, Published: testNow.Add(-time.Hour)},
		{ID: "b", Summary: "nginx exploit hits hospital networks", CVSS: 9.5, Published: testNow.Add(-2 * time.Hour)},
		{ID: "c", Summary: "Unrelated advisory", CVSS: 7, Published: testNow.Add(-30 * time.Minute)},
		{ID: "d", Summary: "nginx bug", CVSS: 2, Published: testNow.AddDate(0, 0, -3)},
	}}

	clients := newFakeClientRepo(model.ClientProfile{
		ID: "c1", UserID: 1, CompanyName: "Acme", ContactName: "Dana", Industry: "Santé", IsActive: true,
	})

	svc := NewDashboardService(iocs, alerts, clients, relevance.NewProfileStore(relevance.DefaultProfile()),
		cache.NewMemory(), testDashboardConfig(), time.Minute, logger.Discard())
	svc.now = func() time.Time { return testNow }

	return &dashboardFixture{svc: svc, iocs: iocs, alerts: alerts, clients: clients}
}

var dashboardUser = &model.AuthUser{ID: 1, LoginID: "acme", Role: model.RoleClient}

func itemIDs(items []model.ScoredAlert) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestPersonalizedRanksRelevantAlerts(t *testing.T) {
	f := newDashboardFixture()

	resp, err := f.svc.Personalized(context.Background(), dashboardUser, model.DashboardQuery{Range: "week"})
	require.NoError(t, err)
	require.Empty(t, resp.Degraded)
	require.Equal(t, "week", resp.Range)
	require.Equal(t, "Santé", resp.Industry)

	require.Equal(t, []string{"b", "a", "d"}, itemIDs(resp.Items))
	// nginx 8 + critical 5 + 산업 가산점 3
	require.Equal(t, 16, resp.Items[0].RelevanceScore)
	require.True(t, resp.Items[0].IndustryRelevant)
	require.Equal(t, 11, resp.Items[1].RelevanceScore)
	require.Equal(t, []model.MatchedKeyword{{Category: relevance.CategoryIP, Word: "203.0.113.7"}}, resp.Items[1].MatchedKeywords)

	require.Equal(t, model.DashboardStats{
		TotalIOCs:      1,
		TotalAlerts:    4,
		RelevantAlerts: 3,
		Severity:       model.SeverityStats{Critical: 1, Medium: 1, Low: 1},
	}, resp.Stats)
	require.Equal(t, model.PageInfo{Page: 1, PageSize: 10, Total: 3, TotalPages: 1}, resp.Page)
}

func TestPersonalizedTodayAndPaging(t *testing.T) {
	f := newDashboardFixture()

	resp, err := f.svc.Personalized(context.Background(), dashboardUser, model.DashboardQuery{Range: "today", Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, 3, resp.Stats.TotalAlerts)
	require.Equal(t, 2, resp.Stats.RelevantAlerts)
	require.Equal(t, []string{"a"}, itemIDs(resp.Items))
	require.Equal(t, model.PageInfo{Page: 2, PageSize: 1, Total: 2, TotalPages: 2}, resp.Page)

	beyond, err := f.svc.Personalized(context.Background(), dashboardUser, model.DashboardQuery{Range: "today", Page: 9, PageSize: 1})
	require.NoError(t, err)
	require.NotNil(t, beyond.Items)
	require.Empty(t, beyond.Items)

	huge, err := f.svc.Personalized(context.Background(), dashboardUser, model.DashboardQuery{Range: "today", Page: math.MaxInt, PageSize: 10})
	require.NoError(t, err)
	require.Empty(t, huge.Items)
	require.Equal(t, model.PageInfo{Page: math.MaxInt, PageSize: 10, Total: 2, TotalPages: 1}, huge.Page)
}

func TestPersonalizedWithoutIOCsIsEmpty(t *testing.T) {
	f := newDashboardFixture()
	user := &model.AuthUser{ID: 2, LoginID: "new", Role: model.RoleClient}

	resp, err := f.svc.Personalized(context.Background(), user, model.DashboardQuery{})
	require.NoError(t, err)
	require.Empty(t, resp.Items)
	require.Empty(t, resp.Degraded)
	require.Equal(t, 0, resp.Stats.RelevantAlerts)
	require.Equal(t, 4, resp.Stats.TotalAlerts)
	require.Empty(t, resp.Industry)
}

func TestPersonalizedCachesPerUserAndQuery(t *testing.T) {
	f := newDashboardFixture()
	ctx := context.Background()

	_, err := f.svc.Personalized(ctx, dashboardUser, model.DashboardQuery{Range: "week"})
	require.NoError(t, err)
	_, err = f.svc.Personalized(ctx, dashboardUser, model.DashboardQuery{Range: "WEEK", Page: 1})
	require.NoError(t, err)
	require.Equal(t, 1, f.alerts.listCalls())

	_, err = f.svc.Personalized(ctx, dashboardUser, model.DashboardQuery{Range: "month"})
	require.NoError(t, err)
	require.Equal(t, 2, f.alerts.listCalls())
}

func TestPersonalizedDegradesOnFailure(t *testing.T) {
	f := newDashboardFixture()
	f.alerts.err = errors.New("connection refused")
	ctx := context.Background()

	resp, err := f.svc.Personalized(ctx, dashboardUser, model.DashboardQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{sourceAlerts}, resp.Degraded)
	require.NotNil(t, resp.Items)
	require.Empty(t, resp.Items)
	require.Equal(t, 1, resp.Stats.TotalIOCs)

	// degraded 응답은 캐시하지 않음
	f.alerts.mu.Lock()
	f.alerts.err = nil
	f.alerts.mu.Unlock()
	resp, err = f.svc.Personalized(ctx, dashboardUser, model.DashboardQuery{})
	require.NoError(t, err)
	require.Empty(t, resp.Degraded)
	require.Len(t, resp.Items, 3)
}

func TestPersonalizedDegradesOnTimeout(t *testing.T) {
	f := newDashboardFixture()
	f.svc.cfg.FetchTimeout = 20 * time.Millisecond
	f.iocs.block = true
	f.clients.err = errors.New("pool closed")

	resp, err := f.svc.Personalized(context.Background(), dashboardUser, model.DashboardQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{sourceIOCs, sourceProfile}, resp.Degraded)
	require.Empty(t, resp.Items)
	require.Equal(t, 0, resp.Stats.TotalIOCs)
	require.Equal(t, 4, resp.Stats.TotalAlerts)
}

func TestPersonalizedRejectsBadInput(t *testing.T) {
	f := newDashboardFixture()

	_, err := f.svc.Personalized(context.Background(), nil, model.DashboardQuery{})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Personalized(context.Background(), dashboardUser, model.DashboardQuery{Range: "forever"})
	require.ErrorIs(t, err, ErrInvalidInput)
}
