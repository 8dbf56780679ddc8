package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ioc-radar/backend/internal/cache"
	"github.com/ioc-radar/backend/internal/logger"
	"github.com/ioc-radar/backend/internal/model"
)

func TestIOCCreateRequiresAField(t *testing.T) {
	svc := NewIOCService(newFakeIOCRepo(), nil, logger.Discard())

	_, err := svc.Create(context.Background(), 1, model.IOCRequest{IP: "  ", OS: ""})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestIOCLifecycleInvalidatesOwnDashboard(t *testing.T) {
	repo := newFakeIOCRepo()
	mem := cache.NewMemory()
	svc := NewIOCService(repo, mem, logger.Discard())
	ctx := context.Background()

	seed := func() {
		require.NoError(t, mem.Set(ctx, cache.Key("dashboard:1", map[string]any{"page": 1}), []byte("{}"), 0))
		require.NoError(t, mem.Set(ctx, cache.Key("dashboard:11", map[string]any{"page": 1}), []byte("{}"), 0))
	}
	seed()

	created, err := svc.Create(ctx, 1, model.IOCRequest{IP: " 10.0.0.1 ", Server: "nginx"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "10.0.0.1", created.IP)
	require.False(t, created.CreatedAt.IsZero())

	require.False(t, mem.Contains(`dashboard:1:{"page":1}`))
	require.True(t, mem.Contains(`dashboard:11:{"page":1}`))

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	seed()
	updated, err := svc.Update(ctx, 1, created.ID, model.IOCRequest{OS: "Windows Server"})
	require.NoError(t, err)
	require.Equal(t, "Windows Server", updated.OS)
	require.Empty(t, updated.IP)
	require.False(t, mem.Contains(`dashboard:1:{"page":1}`))

	// 다른 tenant의 IOC는 수정/삭제 불가
	_, err = svc.Update(ctx, 2, created.ID, model.IOCRequest{OS: "Linux"})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 2, created.ID), ErrNotFound)

	require.NoError(t, svc.Delete(ctx, 1, created.ID))
	list, err = svc.List(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, list)
	require.NotNil(t, list)
}
