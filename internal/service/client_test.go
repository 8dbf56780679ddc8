package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ioc-radar/backend/internal/logger"
	"github.com/ioc-radar/backend/internal/model"
)

func boolPtr(v bool) *bool { return &v }

func TestClientCreateDefaults(t *testing.T) {
	svc := NewClientService(newFakeClientRepo(), nil, logger.Discard())
	ctx := context.Background()

	created, err := svc.Create(ctx, model.CreateClientRequest{
		UserID:      3,
		CompanyName: " Acme ",
		ContactName: "Dana",
		Industry:    "Énergie",
	})
	require.NoError(t, err)
	require.Equal(t, "Acme", created.CompanyName)
	require.Equal(t, model.DefaultSubscriptionPlan, created.SubscriptionPlan)
	require.Equal(t, "energy", created.Industry)
	require.True(t, created.IsActive)

	_, err = svc.Create(ctx, model.CreateClientRequest{UserID: 3, CompanyName: "Dup", ContactName: "Dup"})
	require.ErrorIs(t, err, ErrConflict)

	inactive, err := svc.Create(ctx, model.CreateClientRequest{
		UserID:           4,
		CompanyName:      "Globex",
		ContactName:      "Sam",
		SubscriptionPlan: "Premium",
		IsActive:         boolPtr(false),
	})
	require.NoError(t, err)
	require.Equal(t, "premium", inactive.SubscriptionPlan)
	require.False(t, inactive.IsActive)
}

func TestClientCreateValidation(t *testing.T) {
	svc := NewClientService(newFakeClientRepo(), nil, logger.Discard())
	ctx := context.Background()

	_, err := svc.Create(ctx, model.CreateClientRequest{CompanyName: "Acme", ContactName: "Dana"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, model.CreateClientRequest{UserID: 1, CompanyName: "Acme"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestClientProfileSelfUpdateKeepsPlan(t *testing.T) {
	repo := newFakeClientRepo(model.ClientProfile{
		ID:               "c1",
		UserID:           9,
		CompanyName:      "Acme",
		ContactName:      "Dana",
		SubscriptionPlan: "premium",
		IsActive:         true,
	})
	svc := NewClientService(repo, nil, logger.Discard())
	ctx := context.Background()

	updated, err := svc.UpdateProfile(ctx, 9, model.UpdateClientRequest{
		CompanyName:      "Acme Corp",
		ContactName:      "Dana",
		Industry:         "finance",
		SubscriptionPlan: "basic",
	})
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", updated.CompanyName)
	require.Equal(t, "premium", updated.SubscriptionPlan)
	require.Equal(t, "finance", updated.Industry)

	_, err = svc.GetProfile(ctx, 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClientAdminOperations(t *testing.T) {
	repo := newFakeClientRepo(model.ClientProfile{
		ID: "c1", UserID: 9, CompanyName: "Acme", ContactName: "Dana", SubscriptionPlan: "basic", IsActive: true,
	})
	svc := NewClientService(repo, nil, logger.Discard())
	ctx := context.Background()

	updated, err := svc.Update(ctx, "c1", model.UpdateClientRequest{CompanyName: "Acme", ContactName: "Lee", SubscriptionPlan: "enterprise"})
	require.NoError(t, err)
	require.Equal(t, "enterprise", updated.SubscriptionPlan)
	require.Equal(t, "Lee", updated.ContactName)

	_, err = svc.SetActive(ctx, model.SetClientActiveRequest{UserID: 9})
	require.ErrorIs(t, err, ErrInvalidInput)
	toggled, err := svc.SetActive(ctx, model.SetClientActiveRequest{UserID: 9, IsActive: boolPtr(false)})
	require.NoError(t, err)
	require.False(t, toggled.IsActive)

	clients, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)

	userID, err := svc.Delete(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, int64(9), userID)

	_, err = svc.Delete(ctx, "c1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, "c1")
	require.ErrorIs(t, err, ErrNotFound)
}
