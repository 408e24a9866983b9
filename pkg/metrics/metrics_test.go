package metrics

import (
	"FaceTrigger/internal/entity"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCounters(t *testing.T) {
	m := New()

	m.FrameProcessed(true, 10*time.Millisecond)
	m.FrameProcessed(false, 5*time.Millisecond)
	m.ReadError()
	m.DetectError()
	m.DetectError()

	assert.Equal(t, uint64(2), m.FramesProcessed.Load())
	assert.Equal(t, uint64(0), m.FacePresent.Load())
	assert.Equal(t, uint64(1), m.ReadErrors.Load())
	assert.Equal(t, uint64(2), m.DetectErrors.Load())
}

func TestPulseCounters(t *testing.T) {
	m := New()

	m.PulseFinished(entity.ServoEvent{Source: entity.ServoSourceDetection})
	m.PulseFinished(entity.ServoEvent{Source: entity.ServoSourceDetection, Error: "boom"})
	m.PulseFinished(entity.ServoEvent{Source: entity.ServoSourceManual})
	m.StatusPolled()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pulses.WithLabelValues(entity.ServoSourceDetection)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pulses.WithLabelValues(entity.ServoSourceManual)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pulseFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.FrameProcessed(true, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "facetrigger_face_present 1")
	assert.Contains(t, string(body), "facetrigger_frames_processed_total 1")
}
