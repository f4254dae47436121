package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/staff/domain"
	"github.com/smallbiznis/shiftledger/internal/staff/repository"
	"github.com/smallbiznis/shiftledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Staff{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		DB:    conn,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateAndMoveZone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seller, err := svc.Create(ctx, domain.CreateStaffRequest{Name: "Anna", Role: "seller", Zone: "Center"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, seller.Role)
	assert.Equal(t, "center", seller.Zone)

	require.NoError(t, svc.MoveToZone(ctx, seller.ID, "hedgehog"))
	got, err := svc.Get(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, "hedgehog", got.Zone)
	assert.True(t, got.Active)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateStaffRequest{Name: " ", Role: domain.RoleSeller})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = svc.Create(ctx, domain.CreateStaffRequest{Name: "Boris", Role: "captain"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
	_, err = svc.Get(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.MoveToZone(ctx, 42, "center"), domain.ErrNotFound)
}
