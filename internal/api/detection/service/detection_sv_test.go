package detectionService

import (
	"FaceTrigger/internal/api/detection"
	"FaceTrigger/internal/state"
	"FaceTrigger/internal/trigger"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrigger struct {
	busy    bool
	fired   uint64
	skipped uint64
	lastDur time.Duration
	fireErr error
}

func (f *fakeTrigger) Fire(d time.Duration) (string, error) {
	if f.fireErr != nil {
		return "", f.fireErr
	}
	f.lastDur = d
	f.fired++
	return "pulse-1", nil
}
func (f *fakeTrigger) Busy() bool      { return f.busy }
func (f *fakeTrigger) Fired() uint64   { return f.fired }
func (f *fakeTrigger) Skipped() uint64 { return f.skipped }

type fakeServo struct{ available bool }

func (f fakeServo) Available() bool { return f.available }

type fakeLoop struct{ running bool }

func (f fakeLoop) Running() bool { return f.running }

type countingPolls struct{ n int }

func (c *countingPolls) StatusPolled() { c.n++ }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestGetFaceDetectedTracksStore(t *testing.T) {
	store := state.New()
	polls := &countingPolls{}
	svc := NewDetectionService(testLogger(), store, &fakeTrigger{}, fakeServo{}, fakeLoop{}, polls, Hardware{})
	ctx := context.Background()

	assert.False(t, svc.GetFaceDetected(ctx).FaceDetected)

	store.Set(true, time.Now())
	assert.True(t, svc.GetFaceDetected(ctx).FaceDetected)
	assert.True(t, svc.GetFaceDetected(ctx).FaceDetected)

	store.Set(false, time.Now())
	assert.False(t, svc.GetFaceDetected(ctx).FaceDetected)

	assert.Equal(t, 4, polls.n)
}

func TestGetStatus(t *testing.T) {
	store := state.New()
	tr := &fakeTrigger{fired: 3, skipped: 1, busy: true}
	svc := NewDetectionService(testLogger(), store, tr, fakeServo{available: true}, fakeLoop{running: true}, nil, Hardware{Detector: detection.CascadeDetector})

	status := svc.GetStatus(context.Background())
	assert.False(t, status.FaceDetected)
	assert.Nil(t, status.UpdatedAt)

	store.Set(true, time.Now())
	status = svc.GetStatus(context.Background())
	assert.True(t, status.FaceDetected)
	require.NotNil(t, status.UpdatedAt)
	assert.Equal(t, uint64(1), status.Frames)
	assert.Equal(t, uint64(3), status.PulsesFired)
	assert.Equal(t, uint64(1), status.PulsesSkipped)
	assert.True(t, status.PulseInProgress)
	assert.True(t, status.ServoAttached)
	assert.True(t, status.CameraActive)
	assert.Equal(t, "cascade", status.Detector)
}

func TestGetStatusWithoutHardware(t *testing.T) {
	svc := NewDetectionService(testLogger(), state.New(), nil, nil, nil, nil, Hardware{HostedMode: true})

	status := svc.GetStatus(context.Background())
	assert.True(t, status.HostedMode)
	assert.False(t, status.CameraActive)
	assert.False(t, status.ServoAttached)
}

func TestTriggerPulse(t *testing.T) {
	tr := &fakeTrigger{}
	svc := NewDetectionService(testLogger(), state.New(), tr, fakeServo{available: true}, nil, nil, Hardware{PulseDuration: 2 * time.Second})

	resp, err := svc.TriggerPulse(context.Background(), detection.PulseRequest{})
	require.NoError(t, err)
	assert.Equal(t, "pulse-1", resp.PulseID)
	assert.Equal(t, int64(2000), resp.DurationMS)
	assert.Equal(t, 2*time.Second, tr.lastDur)

	resp, err = svc.TriggerPulse(context.Background(), detection.PulseRequest{DurationMS: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(500), resp.DurationMS)
}

func TestTriggerPulseErrors(t *testing.T) {
	svc := NewDetectionService(testLogger(), state.New(), &fakeTrigger{}, fakeServo{available: false}, nil, nil, Hardware{})
	_, err := svc.TriggerPulse(context.Background(), detection.PulseRequest{})
	assert.ErrorIs(t, err, detection.ErrServoUnavailable)

	svc = NewDetectionService(testLogger(), state.New(), &fakeTrigger{fireErr: trigger.ErrPulseInFlight}, fakeServo{available: true}, nil, nil, Hardware{})
	_, err = svc.TriggerPulse(context.Background(), detection.PulseRequest{})
	assert.ErrorIs(t, err, detection.ErrPulseInProgress)

	other := errors.New("weird")
	svc = NewDetectionService(testLogger(), state.New(), &fakeTrigger{fireErr: other}, fakeServo{available: true}, nil, nil, Hardware{})
	_, err = svc.TriggerPulse(context.Background(), detection.PulseRequest{})
	assert.ErrorIs(t, err, detection.ErrInternalServerError)
	assert.NotErrorIs(t, err, other)
}
