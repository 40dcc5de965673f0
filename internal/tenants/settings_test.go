package tenants

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/booking-platform/internal/schedule"
	"github.com/slotwise/booking-platform/internal/schedule/tz"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	hours, err := schedule.EveryDay("09:00", "17:00")
	require.NoError(t, err)
	return NewStore(client, "America/New_York", hours), mr
}

func TestGetReturnsDefaultsWhenUnset(t *testing.T) {
	store, _ := newTestStore(t)

	settings, err := store.Get(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", settings.Timezone)
	require.NotNil(t, settings.DefaultHours)
	assert.Len(t, settings.DefaultHours.Monday, 1)
}

func TestSetAndGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	hours := &schedule.Weekly{
		Monday: []schedule.TimeRange{{Start: "08:00", End: "12:00"}},
	}
	in := &Settings{TenantID: "tenant-1", Timezone: "Europe/Berlin", DefaultHours: hours}
	require.NoError(t, store.Set(ctx, in))

	got, err := store.Get(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", got.Timezone)
	require.Len(t, got.DefaultHours.Monday, 1)
	assert.Equal(t, "08:00", got.DefaultHours.Monday[0].Start)
}

func TestSetRejectsInvalidTimezone(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Set(context.Background(), &Settings{TenantID: "tenant-1", Timezone: "Nowhere/At_All"})
	assert.ErrorIs(t, err, tz.ErrInvalidTimezone)
}

func TestSetRejectsMalformedHours(t *testing.T) {
	store, _ := newTestStore(t)

	bad := &schedule.Weekly{Monday: []schedule.TimeRange{{Start: "17:00", End: "09:00"}}}
	err := store.Set(context.Background(), &Settings{TenantID: "tenant-1", Timezone: "UTC", DefaultHours: bad})
	assert.ErrorIs(t, err, schedule.ErrMalformedSchedule)
}

func TestGetFillsMissingFields(t *testing.T) {
	store, mr := newTestStore(t)

	// A settings blob saved before default hours existed.
	mr.Set("tenant:settings:tenant-1", `{"tenant_id":"tenant-1","timezone":""}`)

	got, err := store.Get(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", got.Timezone)
	assert.NotNil(t, got.DefaultHours)
}
