// Package tenants provides per-tenant scheduling settings: the reference
// timezone weekly hours are authored in, and the tenant-wide default hours
// used when a booking has no staff assignment.
package tenants

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/slotwise/booking-platform/internal/schedule"
	"github.com/slotwise/booking-platform/internal/schedule/tz"
)

// Settings holds a tenant's scheduling configuration.
type Settings struct {
	TenantID string `json:"tenant_id"`
	// Timezone is the reference zone weekly schedules are interpreted in,
	// e.g. "America/New_York". Customer-facing times are localized separately.
	Timezone     string           `json:"timezone"`
	DefaultHours *schedule.Weekly `json:"default_hours,omitempty"`
}

// Store provides persistence for tenant settings. Tenants that never saved
// settings get the deployment defaults.
type Store struct {
	redis           *redis.Client
	tracer          trace.Tracer
	defaultTimezone string
	defaultHours    *schedule.Weekly
}

// NewStore creates a tenant settings store. The defaults are explicit
// constructor values rather than package constants so tests can vary them.
func NewStore(client *redis.Client, defaultTimezone string, defaultHours *schedule.Weekly) *Store {
	if client == nil {
		panic("tenants: redis client required")
	}
	if !tz.IsValidTimezone(defaultTimezone) {
		panic("tenants: invalid default timezone")
	}
	if defaultHours == nil {
		panic("tenants: default hours required")
	}
	return &Store{
		redis:           client,
		tracer:          otel.Tracer("booking.internal.tenants"),
		defaultTimezone: defaultTimezone,
		defaultHours:    defaultHours,
	}
}

func (s *Store) key(tenantID string) string {
	return fmt.Sprintf("tenant:settings:%s", tenantID)
}

// Get retrieves tenant settings, returning defaults if never saved.
func (s *Store) Get(ctx context.Context, tenantID string) (*Settings, error) {
	ctx, span := s.tracer.Start(ctx, "tenants.get_settings")
	defer span.End()

	data, err := s.redis.Get(ctx, s.key(tenantID)).Bytes()
	if err == redis.Nil {
		return &Settings{
			TenantID:     tenantID,
			Timezone:     s.defaultTimezone,
			DefaultHours: s.defaultHours,
		}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tenants: get settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("tenants: unmarshal settings: %w", err)
	}
	if settings.Timezone == "" {
		settings.Timezone = s.defaultTimezone
	}
	if settings.DefaultHours == nil {
		settings.DefaultHours = s.defaultHours
	}
	return &settings, nil
}

// Set saves tenant settings. Invalid timezones and malformed hour lists are
// rejected here so reads never see them.
func (s *Store) Set(ctx context.Context, settings *Settings) error {
	ctx, span := s.tracer.Start(ctx, "tenants.set_settings")
	defer span.End()

	if settings == nil || settings.TenantID == "" {
		return fmt.Errorf("tenants: settings with tenant id required")
	}
	if !tz.IsValidTimezone(settings.Timezone) {
		return fmt.Errorf("tenants: %w: %q", tz.ErrInvalidTimezone, settings.Timezone)
	}
	if settings.DefaultHours != nil {
		if err := settings.DefaultHours.Validate(); err != nil {
			return fmt.Errorf("tenants: default hours: %w", err)
		}
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("tenants: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(settings.TenantID), data, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("tenants: set settings: %w", err)
	}
	return nil
}
