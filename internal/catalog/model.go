// Package catalog resolves tenants and their bookable services and staff.
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTenantNotFound indicates an unknown tenant id.
	ErrTenantNotFound = errors.New("catalog: tenant not found")
	// ErrServiceNotFound indicates the service does not resolve within the tenant.
	ErrServiceNotFound = errors.New("catalog: service not found")
	// ErrServiceInactive indicates the service exists but is not bookable.
	ErrServiceInactive = errors.New("catalog: service inactive")
	// ErrStaffNotFound indicates the staff member does not resolve within the tenant.
	ErrStaffNotFound = errors.New("catalog: staff not found")
)

// Service is a bookable offering owned by a tenant.
type Service struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	BufferMinutes   int       `json:"buffer_minutes"`
	RequiresStaff   bool      `json:"requires_staff"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Duration returns the service length.
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// Buffer returns the post-appointment gap this service occupies.
func (s *Service) Buffer() time.Duration {
	return time.Duration(s.BufferMinutes) * time.Minute
}

// Staff is a bookable staff member of a tenant.
type Staff struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
}
