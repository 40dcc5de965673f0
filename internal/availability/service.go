package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/slotwise/booking-platform/internal/catalog"
	"github.com/slotwise/booking-platform/internal/observability/metrics"
	"github.com/slotwise/booking-platform/internal/schedule"
	"github.com/slotwise/booking-platform/internal/schedule/tz"
	"github.com/slotwise/booking-platform/internal/tenants"
	"github.com/slotwise/booking-platform/pkg/logging"
)

var tracer = otel.Tracer("booking.internal.availability")

var (
	// ErrInvalidRange indicates an inverted or empty time range.
	ErrInvalidRange = errors.New("availability: invalid time range")
	// ErrRangeTooLarge indicates a date range beyond the configured query cap.
	ErrRangeTooLarge = errors.New("availability: date range too large")
	// ErrStaffRequired indicates the service mandates a staff assignment.
	ErrStaffRequired = errors.New("availability: service requires a staff member")
)

// Catalog resolves tenants, services and staff.
type Catalog interface {
	TenantExists(ctx context.Context, tenantID uuid.UUID) error
	ServiceForTenant(ctx context.Context, tenantID, serviceID uuid.UUID) (*catalog.Service, error)
	StaffForTenant(ctx context.Context, tenantID, staffID uuid.UUID) (*catalog.Staff, error)
}

// SettingsSource loads per-tenant scheduling settings.
type SettingsSource interface {
	Get(ctx context.Context, tenantID string) (*tenants.Settings, error)
}

// ScheduleModel resolves open intervals for a date.
type ScheduleModel interface {
	OpenIntervalsFor(ctx context.Context, tenantID uuid.UUID, staffID *uuid.UUID, date schedule.Date, zone string) ([]schedule.Interval, error)
	OpenIntervalsFromWeekly(tenantID uuid.UUID, weekly *schedule.Weekly, date schedule.Date, zone string) ([]schedule.Interval, error)
}

// ReservationSource lists occupied intervals, each already padded by its own
// service buffer, for the tenant (and staff when scoped).
type ReservationSource interface {
	ListOccupied(ctx context.Context, tenantID uuid.UUID, staffID *uuid.UUID, from, to time.Time) ([]OccupiedInterval, error)
}

// Service answers availability queries. It is read-only and safe for
// arbitrary parallelism; a listed slot may still be taken by the time the
// caller books it, which the reservation gate re-checks.
type Service struct {
	catalog      Catalog
	settings     SettingsSource
	model        ScheduleModel
	reservations ReservationSource
	logger       *logging.Logger
	metrics      *metrics.AvailabilityMetrics
	maxRangeDays int
	nowFunc      func() time.Time
}

// NewService constructs an availability service.
func NewService(cat Catalog, settings SettingsSource, model ScheduleModel, reservations ReservationSource, logger *logging.Logger, m *metrics.AvailabilityMetrics, maxRangeDays int) *Service {
	if cat == nil || settings == nil || model == nil || reservations == nil {
		panic("availability: catalog, settings, model and reservations required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if maxRangeDays <= 0 {
		maxRangeDays = 62
	}
	return &Service{
		catalog:      cat,
		settings:     settings,
		model:        model,
		reservations: reservations,
		logger:       logger,
		metrics:      m,
		maxRangeDays: maxRangeDays,
		nowFunc:      time.Now,
	}
}

// Request describes one availability query.
type Request struct {
	TenantID  uuid.UUID
	ServiceID uuid.UUID
	StaffID   *uuid.UUID
	StartDate schedule.Date
	EndDate   schedule.Date
	// CustomerTimezone is the zone the caller wants display times in; it has
	// no influence on which windows exist.
	CustomerTimezone string
	// IncludeUnavailable keeps colliding candidates flagged unavailable
	// instead of dropping them (internal calendar views).
	IncludeUnavailable bool
}

// GenerateSlots enumerates candidate windows over the inclusive date range,
// drops past candidates, removes (or flags) conflicts, and returns the
// result sorted ascending by UTC start.
func (s *Service) GenerateSlots(ctx context.Context, req Request) ([]CandidateSlot, error) {
	ctx, span := tracer.Start(ctx, "availability.generate_slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.tenant_id", req.TenantID.String()),
		attribute.String("booking.service_id", req.ServiceID.String()),
	)
	started := s.nowFunc()

	slots, err := s.generateSlots(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveQuery("error", time.Since(started).Seconds())
		return nil, err
	}
	s.metrics.ObserveQuery("ok", time.Since(started).Seconds())
	s.metrics.ObserveSlots(len(slots))
	s.logger.Debug("availability query served",
		"tenant_id", req.TenantID, "service_id", req.ServiceID,
		"from", req.StartDate.String(), "to", req.EndDate.String(), "slots", len(slots))
	return slots, nil
}

func (s *Service) generateSlots(ctx context.Context, req Request) ([]CandidateSlot, error) {
	if !tz.IsValidTimezone(req.CustomerTimezone) {
		return nil, fmt.Errorf("%w: %q", tz.ErrInvalidTimezone, req.CustomerTimezone)
	}
	if err := s.catalog.TenantExists(ctx, req.TenantID); err != nil {
		return nil, err
	}
	svc, err := s.catalog.ServiceForTenant(ctx, req.TenantID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, catalog.ErrServiceInactive
	}
	if req.StaffID != nil {
		if _, err := s.catalog.StaffForTenant(ctx, req.TenantID, *req.StaffID); err != nil {
			return nil, err
		}
	} else if svc.RequiresStaff {
		return nil, ErrStaffRequired
	}

	if req.StartDate.After(req.EndDate) {
		return []CandidateSlot{}, nil
	}
	if err := s.checkRangeSize(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx, req.TenantID.String())
	if err != nil {
		return nil, err
	}

	var candidates []CandidateSlot
	for d := req.StartDate; !d.After(req.EndDate); d = d.Next() {
		var intervals []schedule.Interval
		if req.StaffID != nil {
			intervals, err = s.model.OpenIntervalsFor(ctx, req.TenantID, req.StaffID, d, settings.Timezone)
		} else {
			intervals, err = s.model.OpenIntervalsFromWeekly(req.TenantID, settings.DefaultHours, d, settings.Timezone)
		}
		if err != nil {
			return nil, err
		}
		for _, iv := range intervals {
			candidates = append(candidates, generate(iv, svc.Duration(), svc.Buffer(), req.StaffID)...)
		}
	}

	// Past slots are never offered.
	now := s.nowFunc()
	upcoming := candidates[:0]
	for _, c := range candidates {
		if c.StartUTC.Before(now) {
			continue
		}
		upcoming = append(upcoming, c)
	}
	candidates = upcoming

	if len(candidates) > 0 {
		from := candidates[0].StartUTC
		to := candidates[0].EndUTC
		for _, c := range candidates[1:] {
			if c.StartUTC.Before(from) {
				from = c.StartUTC
			}
			if c.EndUTC.After(to) {
				to = c.EndUTC
			}
		}
		occupied, err := s.reservations.ListOccupied(ctx, req.TenantID, req.StaffID, from, to.Add(svc.Buffer()))
		if err != nil {
			return nil, err
		}
		if req.IncludeUnavailable {
			candidates = Flag(candidates, svc.Buffer(), occupied)
		} else {
			candidates = Filter(candidates, svc.Buffer(), occupied)
		}
	}

	if err := localize(candidates, req.CustomerTimezone); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].StartUTC.Equal(candidates[j].StartUTC) {
			return candidates[i].StartUTC.Before(candidates[j].StartUTC)
		}
		return staffSortKey(candidates[i].StaffID) < staffSortKey(candidates[j].StaffID)
	})

	if candidates == nil {
		candidates = []CandidateSlot{}
	}
	return candidates, nil
}

// CheckAvailability reports whether the exact window is currently free,
// without claiming it. The answer may be stale by booking time; only the
// reservation gate's in-transaction check is authoritative.
func (s *Service) CheckAvailability(ctx context.Context, tenantID, serviceID uuid.UUID, startUTC, endUTC time.Time, staffID *uuid.UUID) (bool, error) {
	ctx, span := tracer.Start(ctx, "availability.check")
	defer span.End()

	if !endUTC.After(startUTC) {
		return false, fmt.Errorf("%w: [%s, %s)", ErrInvalidRange, startUTC, endUTC)
	}
	svc, err := s.catalog.ServiceForTenant(ctx, tenantID, serviceID)
	if err != nil {
		return false, err
	}
	if !svc.Active {
		return false, catalog.ErrServiceInactive
	}
	if staffID != nil {
		if _, err := s.catalog.StaffForTenant(ctx, tenantID, *staffID); err != nil {
			return false, err
		}
	}

	occupied, err := s.reservations.ListOccupied(ctx, tenantID, staffID, startUTC, endUTC.Add(svc.Buffer()))
	if err != nil {
		return false, err
	}
	free := !collides(CandidateSlot{StartUTC: startUTC, EndUTC: endUTC}, svc.Buffer(), occupied)
	return free, nil
}

func (s *Service) checkRangeSize(start, end schedule.Date) error {
	from := time.Date(start.Year, start.Month, start.Day, 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year, end.Month, end.Day, 0, 0, 0, 0, time.UTC)
	days := int(to.Sub(from).Hours()/24) + 1
	if days > s.maxRangeDays {
		return fmt.Errorf("%w: %d days exceeds cap of %d", ErrRangeTooLarge, days, s.maxRangeDays)
	}
	return nil
}

func staffSortKey(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
