package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"challan-service/internal/domain/challan"
)

// ChallanRepository persists challans and exposes a coarse change feed
// used by the statistics aggregator. Creations and payment transitions
// each emit one change notification.
type ChallanRepository struct {
	db *gorm.DB

	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewChallanRepository(db *gorm.DB) *ChallanRepository {
	return &ChallanRepository{
		db:   db,
		subs: make(map[chan struct{}]struct{}),
	}
}

// ChallanRecord is the gorm representation of a challan row.
type ChallanRecord struct {
	ID            int64          `gorm:"primaryKey"`
	VehicleNumber string         `gorm:"not null"`
	VehicleType   string         `gorm:"not null"`
	ViolationType string         `gorm:"not null"`
	Location      string         `gorm:"not null"`
	Amount        float64        `gorm:"not null"`
	Status        string         `gorm:"not null"`
	PaymentMethod *string
	PaidAt        *time.Time
	UserID        *string
	Detection     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

func (ChallanRecord) TableName() string {
	return "challans"
}

// CreateChallan inserts a new record and writes the store-assigned ID
// back into the domain object.
func (r *ChallanRepository) CreateChallan(ctx context.Context, c *challan.Challan) error {
	record := ChallanRecord{
		VehicleNumber: c.VehicleNumber,
		VehicleType:   string(c.VehicleType),
		ViolationType: string(c.ViolationType),
		Location:      c.Location,
		Amount:        c.Amount,
		Status:        string(c.Status),
		CreatedAt:     c.Timestamp,
	}

	if c.UserID != "" {
		record.UserID = &c.UserID
	}
	if c.Detection != nil {
		data, err := json.Marshal(c.Detection)
		if err != nil {
			return err
		}
		record.Detection = datatypes.JSON(data)
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	c.ID = record.ID
	r.notify()
	return nil
}

// GetChallan returns the challan with the given ID, or nil when no
// such record exists.
func (r *ChallanRepository) GetChallan(ctx context.Context, id int64) (*challan.Challan, error) {
	var record ChallanRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c, err := toDomain(record)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MarkPaid applies the Pending -> Paid transition with a conditional
// update so that of two concurrent payment attempts only the first
// succeeds. Returns false when no pending row with this ID exists.
func (r *ChallanRepository) MarkPaid(ctx context.Context, id int64, method challan.PaymentMethod, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ChallanRecord{}).
		Where("id = ? AND status = ?", id, string(challan.StatusPending)).
		Updates(map[string]interface{}{
			"status":         string(challan.StatusPaid),
			"payment_method": string(method),
			"paid_at":        paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	r.notify()
	return true, nil
}

// FindChallans lists records matching the optional filters, newest
// first.
func (r *ChallanRepository) FindChallans(ctx context.Context, status *challan.ChallanStatus, vehicleNumber *string, from, to *time.Time, limit, offset int) ([]challan.Challan, error) {
	query := r.db.WithContext(ctx).Model(&ChallanRecord{})

	if status != nil {
		query = query.Where("status = ?", string(*status))
	}
	if vehicleNumber != nil {
		query = query.Where("vehicle_number = ?", *vehicleNumber)
	}
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	query = query.Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var records []ChallanRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return toDomainList(records)
}

// AllChallans returns the full record set. The statistics aggregator
// rescans it on every change.
func (r *ChallanRepository) AllChallans(ctx context.Context) ([]challan.Challan, error) {
	var records []ChallanRecord
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, err
	}
	return toDomainList(records)
}

// Subscribe registers a change listener. The returned channel carries
// coalesced signals: at least one delivery is guaranteed after any
// change, consecutive changes may collapse into one.
func (r *ChallanRepository) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()
	return ch
}

// Unsubscribe removes a change listener.
func (r *ChallanRepository) Unsubscribe(ch chan struct{}) {
	r.mu.Lock()
	delete(r.subs, ch)
	r.mu.Unlock()
}

func (r *ChallanRepository) notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func toDomain(record ChallanRecord) (*challan.Challan, error) {
	c := challan.Challan{
		ID:            record.ID,
		VehicleNumber: record.VehicleNumber,
		VehicleType:   challan.VehicleType(record.VehicleType),
		ViolationType: challan.ViolationType(record.ViolationType),
		Location:      record.Location,
		Amount:        record.Amount,
		Status:        challan.ChallanStatus(record.Status),
		PaidAt:        record.PaidAt,
		Timestamp:     record.CreatedAt,
	}

	if record.PaymentMethod != nil {
		method := challan.PaymentMethod(*record.PaymentMethod)
		c.PaymentMethod = &method
	}
	if record.UserID != nil {
		c.UserID = *record.UserID
	}
	if len(record.Detection) > 0 {
		var det challan.DetectionResult
		if err := json.Unmarshal(record.Detection, &det); err != nil {
			return nil, err
		}
		c.Detection = &det
	}

	return &c, nil
}

func toDomainList(records []ChallanRecord) ([]challan.Challan, error) {
	challans := make([]challan.Challan, 0, len(records))
	for _, record := range records {
		c, err := toDomain(record)
		if err != nil {
			return nil, err
		}
		challans = append(challans, *c)
	}
	return challans, nil
}
