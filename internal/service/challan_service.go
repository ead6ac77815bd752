package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"challan-service/internal/domain/challan"
	"challan-service/internal/utils"
)

// ChallanStore is the record store the lifecycle service writes to.
// Implemented by repository.ChallanRepository; the store is treated as
// externally synchronized.
type ChallanStore interface {
	CreateChallan(ctx context.Context, c *challan.Challan) error
	GetChallan(ctx context.Context, id int64) (*challan.Challan, error)
	MarkPaid(ctx context.Context, id int64, method challan.PaymentMethod, paidAt time.Time) (bool, error)
	FindChallans(ctx context.Context, status *challan.ChallanStatus, vehicleNumber *string, from, to *time.Time, limit, offset int) ([]challan.Challan, error)
	AllChallans(ctx context.Context) ([]challan.Challan, error)
	Subscribe() chan struct{}
	Unsubscribe(ch chan struct{})
}

// EventPublisher announces challan lifecycle events to external
// consumers. Optional; a nil publisher disables announcements.
type EventPublisher interface {
	ChallanCreated(c challan.Challan)
	ChallanPaid(c challan.Challan)
}

// ChallanService owns the challan lifecycle: creation from detections
// or manual entry, and the single Pending -> Paid transition.
type ChallanService struct {
	store     ChallanStore
	publisher EventPublisher
	log       zerolog.Logger
}

func NewChallanService(store ChallanStore, publisher EventPublisher, log zerolog.Logger) *ChallanService {
	return &ChallanService{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// CreateFromDetection promotes a detection result into a challan. The
// violation type is always the no-entry-zone violation on this path,
// and the amount is fixed here, never recomputed.
func (s *ChallanService) CreateFromDetection(ctx context.Context, det challan.DetectionResult, location string) (*challan.Challan, error) {
	detection := det
	c := &challan.Challan{
		VehicleNumber: det.VehicleNumber,
		VehicleType:   det.VehicleType,
		ViolationType: challan.ViolationNoEntry,
		Location:      location,
		Amount:        challan.FineAmount(challan.ViolationNoEntry, det.VehicleType),
		Status:        challan.StatusPending,
		Detection:     &detection,
		Timestamp:     time.Now(),
	}

	if err := s.store.CreateChallan(ctx, c); err != nil {
		s.log.Error().
			Err(err).
			Str("vehicle_number", det.VehicleNumber).
			Str("location", location).
			Msg("failed to create challan from detection")
		return nil, fmt.Errorf("failed to create challan: %w", err)
	}

	s.log.Info().
		Int64("challan_id", c.ID).
		Str("vehicle_number", c.VehicleNumber).
		Str("vehicle_type", string(c.VehicleType)).
		Float64("amount", c.Amount).
		Str("location", c.Location).
		Msg("challan created from detection")

	if s.publisher != nil {
		s.publisher.ChallanCreated(*c)
	}
	return c, nil
}

// ManualChallanInput is the administrative manual-entry payload. The
// amount is always computed from the lookup tables, never supplied.
type ManualChallanInput struct {
	VehicleNumber string
	VehicleType   challan.VehicleType
	ViolationType challan.ViolationType
	Location      string
	UserID        string
}

// CreateManual records a challan entered by an administrator.
func (s *ChallanService) CreateManual(ctx context.Context, input ManualChallanInput) (*challan.Challan, error) {
	plate := utils.NormalizePlate(input.VehicleNumber)
	if plate == "" {
		return nil, fmt.Errorf("%w: vehicle number is required", ErrInvalidInput)
	}
	if !input.VehicleType.IsValid() {
		return nil, fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidInput, input.VehicleType)
	}
	if !input.ViolationType.IsValid() {
		return nil, fmt.Errorf("%w: unknown violation type %q", ErrInvalidInput, input.ViolationType)
	}
	if input.Location == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}

	c := &challan.Challan{
		VehicleNumber: plate,
		VehicleType:   input.VehicleType,
		ViolationType: input.ViolationType,
		Location:      input.Location,
		Amount:        challan.FineAmount(input.ViolationType, input.VehicleType),
		Status:        challan.StatusPending,
		UserID:        input.UserID,
		Timestamp:     time.Now(),
	}

	if err := s.store.CreateChallan(ctx, c); err != nil {
		s.log.Error().Err(err).Str("vehicle_number", plate).Msg("failed to create manual challan")
		return nil, fmt.Errorf("failed to create challan: %w", err)
	}

	s.log.Info().
		Int64("challan_id", c.ID).
		Str("vehicle_number", c.VehicleNumber).
		Str("violation_type", string(c.ViolationType)).
		Float64("amount", c.Amount).
		Msg("manual challan created")

	if s.publisher != nil {
		s.publisher.ChallanCreated(*c)
	}
	return c, nil
}

// Pay applies the Pending -> Paid transition. The store update is
// conditional on the pending status, so concurrent payment attempts on
// one challan resolve first-wins; the loser gets ErrAlreadyPaid.
func (s *ChallanService) Pay(ctx context.Context, id int64, method challan.PaymentMethod) (*challan.Challan, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, method)
	}

	paidAt := time.Now()
	ok, err := s.store.MarkPaid(ctx, id, method, paidAt)
	if err != nil {
		s.log.Error().Err(err).Int64("challan_id", id).Msg("failed to mark challan paid")
		return nil, fmt.Errorf("failed to update challan: %w", err)
	}

	if !ok {
		existing, err := s.store.GetChallan(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load challan: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: challan %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: challan %d", ErrAlreadyPaid, id)
	}

	c, err := s.store.GetChallan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load challan: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: challan %d", ErrNotFound, id)
	}

	s.log.Info().
		Int64("challan_id", id).
		Str("payment_method", string(method)).
		Time("paid_at", paidAt).
		Msg("challan paid")

	if s.publisher != nil {
		s.publisher.ChallanPaid(*c)
	}
	return c, nil
}

// Get returns one challan by ID.
func (s *ChallanService) Get(ctx context.Context, id int64) (*challan.Challan, error) {
	c, err := s.store.GetChallan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load challan: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: challan %d", ErrNotFound, id)
	}
	return c, nil
}

// Find lists challans matching the optional filters. Vehicle numbers
// are normalized before matching; limits are clamped to [1,100].
func (s *ChallanService) Find(ctx context.Context, status *challan.ChallanStatus, vehicleNumber *string, from, to *time.Time, limit, offset int) ([]challan.Challan, error) {
	if status != nil && *status != challan.StatusPending && *status != challan.StatusPaid {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *status)
	}

	var plate *string
	if vehicleNumber != nil {
		normalized := utils.NormalizePlate(*vehicleNumber)
		if normalized != "" {
			plate = &normalized
		}
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	challans, err := s.store.FindChallans(ctx, status, plate, from, to, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find challans: %w", err)
	}
	return challans, nil
}
