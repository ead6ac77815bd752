package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"challan-service/internal/domain/challan"
	"challan-service/internal/vision"
)

// memStore is an in-memory ChallanStore with the same notification and
// first-wins payment semantics as the gorm repository.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	challans  map[int64]*challan.Challan
	subs      map[chan struct{}]struct{}
	createErr error
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   1,
		challans: make(map[int64]*challan.Challan),
		subs:     make(map[chan struct{}]struct{}),
	}
}

func (s *memStore) CreateChallan(_ context.Context, c *challan.Challan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}

	c.ID = s.nextID
	s.nextID++
	clone := *c
	s.challans[c.ID] = &clone
	s.notifyLocked()
	return nil
}

func (s *memStore) GetChallan(_ context.Context, id int64) (*challan.Challan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challans[id]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (s *memStore) MarkPaid(_ context.Context, id int64, method challan.PaymentMethod, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challans[id]
	if !ok || c.Status != challan.StatusPending {
		return false, nil
	}

	c.Status = challan.StatusPaid
	c.PaymentMethod = &method
	c.PaidAt = &paidAt
	s.notifyLocked()
	return true, nil
}

func (s *memStore) FindChallans(_ context.Context, status *challan.ChallanStatus, vehicleNumber *string, _, _ *time.Time, limit, offset int) ([]challan.Challan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []challan.Challan
	for _, c := range s.challans {
		if status != nil && c.Status != *status {
			continue
		}
		if vehicleNumber != nil && c.VehicleNumber != *vehicleNumber {
			continue
		}
		result = append(result, *c)
	}
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (s *memStore) AllChallans(_ context.Context) ([]challan.Challan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]challan.Challan, 0, len(s.challans))
	for _, c := range s.challans {
		result = append(result, *c)
	}
	return result, nil
}

func (s *memStore) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *memStore) Unsubscribe(ch chan struct{}) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func (s *memStore) notifyLocked() {
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challans)
}

// fakeCamera serves a fixed frame and counts captures.
type fakeCamera struct {
	mu       sync.Mutex
	probeErr error
	frame    vision.Frame
	captures int
}

func (c *fakeCamera) Probe(context.Context) error {
	return c.probeErr
}

func (c *fakeCamera) Capture(context.Context) (vision.Frame, error) {
	c.mu.Lock()
	c.captures++
	c.mu.Unlock()
	return c.frame, nil
}

func (c *fakeCamera) captureCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captures
}

// fakeVision returns a fixed region list.
type fakeVision struct {
	regions []challan.Region
	err     error
}

func (v *fakeVision) ExtractRegions(context.Context, vision.Frame) ([]challan.Region, error) {
	return v.regions, v.err
}

// fakeOCR returns fixed text, optionally blocking until released to
// hold the single-flight guard open. entered receives one signal when
// a blocked call reaches the OCR stage.
type fakeOCR struct {
	text       string
	confidence float64
	block      chan struct{}
	entered    chan struct{}
}

func (o *fakeOCR) RecognizeText(ctx context.Context, _ vision.Frame, _ challan.Region) (string, float64, error) {
	if o.block != nil {
		if o.entered != nil {
			select {
			case o.entered <- struct{}{}:
			default:
			}
		}
		select {
		case <-o.block:
		case <-ctx.Done():
			return "", 0, ctx.Err()
		}
	}
	return o.text, o.confidence, nil
}

var errStoreDown = errors.New("store down")
