package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"challan-service/internal/domain/challan"
	"challan-service/internal/utils"
	"challan-service/internal/vision"
)

// CaptureService is the capture controller: it owns the sampling loop
// for the single camera session and runs the detection pipeline for
// each sampled frame. At most one session is active at a time, and
// within a session at most one cycle runs at a time (single-flight
// guard shared by timer ticks and manual triggers).
type CaptureService struct {
	camera    vision.Camera
	vision    vision.Vision
	ocr       vision.OCR
	challans  *ChallanService
	locations []string
	interval  time.Duration
	log       zerolog.Logger

	mu      sync.Mutex
	session *captureSession
}

type captureSession struct {
	id       uuid.UUID
	location string
	camera   challan.CameraParameters
	busy     atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewCaptureService(camera vision.Camera, vis vision.Vision, ocr vision.OCR, challans *ChallanService, locations []string, interval time.Duration, log zerolog.Logger) *CaptureService {
	return &CaptureService{
		camera:    camera,
		vision:    vis,
		ocr:       ocr,
		challans:  challans,
		locations: locations,
		interval:  interval,
		log:       log,
	}
}

// StartSession begins periodic sampling for a monitored location. A
// failed camera probe is fatal to the start; nothing is scheduled.
func (s *CaptureService) StartSession(ctx context.Context, location string, params challan.CameraParameters) (uuid.UUID, error) {
	if params.FocalLength <= 0 || params.SensorWidth <= 0 || params.Distance <= 0 {
		return uuid.Nil, fmt.Errorf("%w: camera parameters must be positive", ErrInvalidInput)
	}
	if !s.knownLocation(location) {
		return uuid.Nil, fmt.Errorf("%w: unmonitored location %q", ErrInvalidInput, location)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return uuid.Nil, ErrSessionActive
	}

	if err := s.camera.Probe(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sess := &captureSession{
		id:       uuid.New(),
		location: location,
		camera:   params,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.session = sess

	go s.runLoop(loopCtx, sess)

	s.log.Info().
		Str("session_id", sess.id.String()).
		Str("location", location).
		Dur("interval", s.interval).
		Msg("capture session started")
	return sess.id, nil
}

// StopSession cancels the sampling timer and waits for an in-flight
// cycle to finish. No further ticks fire after it returns.
func (s *CaptureService) StopSession() error {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	if sess == nil {
		return ErrNoSession
	}

	sess.cancel()
	<-sess.done

	s.log.Info().Str("session_id", sess.id.String()).Msg("capture session stopped")
	return nil
}

// CaptureOnce runs one manual detection cycle outside the timer. It
// shares the session's single-flight guard: if a cycle is already in
// flight the call is rejected with ErrBusy rather than queued.
func (s *CaptureService) CaptureOnce(ctx context.Context) (*challan.DetectionResult, error) {
	sess, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer sess.busy.Store(false)

	frame, err := s.camera.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture frame: %w", err)
	}
	return s.processFrame(ctx, sess, frame)
}

// ProcessFrame runs one manual cycle over a caller-supplied frame
// (e.g. an uploaded video still), under the same single-flight guard.
func (s *CaptureService) ProcessFrame(ctx context.Context, frame vision.Frame) (*challan.DetectionResult, error) {
	sess, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer sess.busy.Store(false)

	return s.processFrame(ctx, sess, frame)
}

func (s *CaptureService) acquire() (*captureSession, error) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess == nil {
		return nil, ErrNoSession
	}
	if !sess.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return sess, nil
}

func (s *CaptureService) knownLocation(location string) bool {
	if len(s.locations) == 0 {
		return location != ""
	}
	for _, l := range s.locations {
		if l == location {
			return true
		}
	}
	return false
}

// runLoop drives the sampling timer. A cycle failure only skips that
// cycle; the loop keeps ticking until the session is stopped.
func (s *CaptureService) runLoop(ctx context.Context, sess *captureSession) {
	defer close(sess.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !sess.busy.CompareAndSwap(false, true) {
				s.log.Debug().Str("session_id", sess.id.String()).Msg("cycle still in flight, tick skipped")
				continue
			}
			s.runCycle(ctx, sess)
			sess.busy.Store(false)
		}
	}
}

func (s *CaptureService) runCycle(ctx context.Context, sess *captureSession) {
	frame, err := s.camera.Capture(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn().Err(err).Str("session_id", sess.id.String()).Msg("frame capture failed")
		}
		return
	}

	result, err := s.processFrame(ctx, sess, frame)
	switch {
	case errors.Is(err, ErrNoDetection):
		s.log.Debug().Str("session_id", sess.id.String()).Msg("no detection in cycle")
	case err != nil:
		if ctx.Err() == nil {
			s.log.Warn().Err(err).Str("session_id", sess.id.String()).Msg("detection cycle failed")
		}
	default:
		s.log.Info().
			Str("session_id", sess.id.String()).
			Str("vehicle_number", result.VehicleNumber).
			Str("vehicle_type", string(result.VehicleType)).
			Msg("detection cycle produced challan")
	}
}

// processFrame runs the full pipeline over one frame: region
// extraction, geometric gate, plate OCR, dimension estimation,
// classification, challan creation. One challan is created per
// successfully resolved region; the first result is returned.
func (s *CaptureService) processFrame(ctx context.Context, sess *captureSession, frame vision.Frame) (*challan.DetectionResult, error) {
	regions, err := s.vision.ExtractRegions(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("region extraction failed: %w", err)
	}

	candidates := challan.FilterRegions(regions)
	if len(candidates) == 0 {
		return nil, ErrNoDetection
	}

	var first *challan.DetectionResult
	var lastErr error

	for _, region := range candidates {
		text, confidence, err := s.ocr.RecognizeText(ctx, frame, region)
		if err != nil {
			s.log.Warn().Err(err).Msg("ocr failed for region")
			lastErr = fmt.Errorf("ocr failed: %w", err)
			continue
		}

		plate, ok := utils.ExtractPlate(text)
		if !ok {
			s.log.Debug().Str("text", text).Msg("no plate found in recognized text")
			continue
		}

		dims := challan.EstimateDimensions(region, sess.camera)
		det := challan.DetectionResult{
			VehicleNumber: plate,
			VehicleType:   challan.ClassifyVehicle(dims),
			Dimensions:    dims,
			Region:        region,
			Confidence:    confidence,
		}

		if _, err := s.challans.CreateFromDetection(ctx, det, sess.location); err != nil {
			lastErr = err
			continue
		}
		if first == nil {
			result := det
			first = &result
		}
	}

	if first == nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrNoDetection
	}
	return first, nil
}
