package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challan-service/internal/domain/challan"
	"challan-service/internal/vision"
)

var testCamera = challan.CameraParameters{FocalLength: 35, SensorWidth: 23.5, Distance: 10}

func newTestCaptureService(store ChallanStore, cam *fakeCamera, vis *fakeVision, ocr *fakeOCR, interval time.Duration) *CaptureService {
	challans := newTestChallanService(store)
	return NewCaptureService(cam, vis, ocr, challans, []string{"Gate A"}, interval, zerolog.Nop())
}

func vehicleRegion() challan.Region {
	return challan.Region{X: 10, Y: 10, Width: 70, Height: 35, Area: 2450}
}

func TestStartSessionCameraUnavailable(t *testing.T) {
	cam := &fakeCamera{probeErr: context.DeadlineExceeded}
	svc := newTestCaptureService(newMemStore(), cam, &fakeVision{}, &fakeOCR{}, time.Hour)

	_, err := svc.StartSession(context.Background(), "Gate A", testCamera)
	assert.ErrorIs(t, err, ErrCameraUnavailable)

	// A failed start leaves no session behind.
	assert.ErrorIs(t, svc.StopSession(), ErrNoSession)
}

func TestStartSessionValidation(t *testing.T) {
	svc := newTestCaptureService(newMemStore(), &fakeCamera{}, &fakeVision{}, &fakeOCR{}, time.Hour)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "Gate A", challan.CameraParameters{FocalLength: 0, SensorWidth: 23.5, Distance: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.StartSession(ctx, "Unknown Gate", testCamera)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStartSessionSingleton(t *testing.T) {
	svc := newTestCaptureService(newMemStore(), &fakeCamera{}, &fakeVision{}, &fakeOCR{}, time.Hour)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "Gate A", testCamera)
	require.NoError(t, err)
	defer svc.StopSession()

	_, err = svc.StartSession(ctx, "Gate A", testCamera)
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestCaptureOnce(t *testing.T) {
	store := newMemStore()
	vis := &fakeVision{regions: []challan.Region{vehicleRegion()}}
	ocr := &fakeOCR{text: "plate AB 12 CD 3456", confidence: 0.9}
	svc := newTestCaptureService(store, &fakeCamera{}, vis, ocr, time.Hour)
	ctx := context.Background()

	_, err := svc.CaptureOnce(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = svc.StartSession(ctx, "Gate A", testCamera)
	require.NoError(t, err)
	defer svc.StopSession()

	det, err := svc.CaptureOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AB12CD3456", det.VehicleNumber)
	assert.InDelta(t, 20.0, det.Dimensions.Width, 1e-9)
	assert.Equal(t, challan.ClassifyVehicle(det.Dimensions), det.VehicleType)
	assert.InDelta(t, 0.9, det.Confidence, 1e-9)

	// One challan per resolved region, violation fixed to no-entry.
	all, err := store.AllChallans(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, challan.ViolationNoEntry, all[0].ViolationType)
	assert.Equal(t, "Gate A", all[0].Location)
}

func TestCaptureOnceNoDetection(t *testing.T) {
	store := newMemStore()
	svc := newTestCaptureService(store, &fakeCamera{}, &fakeVision{}, &fakeOCR{}, time.Hour)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "Gate A", testCamera)
	require.NoError(t, err)
	defer svc.StopSession()

	// No regions at all.
	_, err = svc.CaptureOnce(ctx)
	assert.ErrorIs(t, err, ErrNoDetection)
	assert.Zero(t, store.count())
}

func TestCaptureOncePlateNotMatched(t *testing.T) {
	store := newMemStore()
	vis := &fakeVision{regions: []challan.Region{vehicleRegion()}}
	ocr := &fakeOCR{text: "AB1CD345", confidence: 0.4}
	svc := newTestCaptureService(store, &fakeCamera{}, vis, ocr, time.Hour)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "Gate A", testCamera)
	require.NoError(t, err)
	defer svc.StopSession()

	_, err = svc.CaptureOnce(ctx)
	assert.ErrorIs(t, err, ErrNoDetection)
	assert.Zero(t, store.count())
}

func TestCaptureOnceRejectedWhileBusy(t *testing.T) {
	store := newMemStore()
	vis := &fakeVision{regions: []challan.Region{vehicleRegion()}}
	ocr := &fakeOCR{text: "AB12CD3456", confidence: 0.9, block: make(chan struct{}), entered: make(chan struct{}, 1)}
	svc := newTestCaptureService(store, &fakeCamera{}, vis, ocr, time.Hour)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "Gate A", testCamera)
	require.NoError(t, err)
	defer svc.StopSession()

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.CaptureOnce(ctx)
		firstDone <- err
	}()

	// The first cycle is parked inside OCR; a second manual trigger
	// must be rejected, not queued.
	<-ocr.entered
	_, err = svc.CaptureOnce(ctx)
	assert.ErrorIs(t, err, ErrBusy)

	close(ocr.block)
	require.NoError(t, <-firstDone)

	// Guard released after completion.
	_, err = svc.CaptureOnce(ctx)
	require.NoError(t, err)
}

func TestProcessFrameUsesGuard(t *testing.T) {
	store := newMemStore()
	vis := &fakeVision{regions: []challan.Region{vehicleRegion()}}
	ocr := &fakeOCR{text: "AB12CD3456", confidence: 0.9}
	svc := newTestCaptureService(store, &fakeCamera{}, vis, ocr, time.Hour)
	ctx := context.Background()

	frame := vision.Frame{Width: 640, Height: 480}

	_, err := svc.ProcessFrame(ctx, frame)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = svc.StartSession(ctx, "Gate A", testCamera)
	require.NoError(t, err)
	defer svc.StopSession()

	det, err := svc.ProcessFrame(ctx, frame)
	require.NoError(t, err)
	assert.Equal(t, "AB12CD3456", det.VehicleNumber)
}

func TestTimerLoopCreatesChallans(t *testing.T) {
	store := newMemStore()
	cam := &fakeCamera{}
	vis := &fakeVision{regions: []challan.Region{vehicleRegion()}}
	ocr := &fakeOCR{text: "AB12CD3456", confidence: 0.9}
	svc := newTestCaptureService(store, cam, vis, ocr, 10*time.Millisecond)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "Gate A", testCamera)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return store.count() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, svc.StopSession())

	// No further ticks fire after StopSession returns.
	stopped := cam.captureCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, cam.captureCount())
}

func TestCycleFailureDoesNotStopLoop(t *testing.T) {
	store := newMemStore()
	cam := &fakeCamera{}
	vis := &fakeVision{err: errStoreDown}
	ocr := &fakeOCR{}
	svc := newTestCaptureService(store, cam, vis, ocr, 10*time.Millisecond)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "Gate A", testCamera)
	require.NoError(t, err)
	defer svc.StopSession()

	// Every cycle fails in region extraction, yet sampling continues.
	require.Eventually(t, func() bool {
		return cam.captureCount() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, store.count())
}
