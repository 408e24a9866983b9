package detectionService

import (
	"FaceTrigger/internal/api/detection"
	"FaceTrigger/internal/entity"
	"FaceTrigger/internal/trigger"
	"FaceTrigger/pkg/log"
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

func (s *detectionService) GetFaceDetected(ctx context.Context) detection.FaceDetectResponse {
	snapshot := s.state.Snapshot()

	if s.polls != nil {
		s.polls.StatusPolled()
	}

	s.mu.Lock()
	changed := snapshot.FaceDetected != s.lastReported
	s.lastReported = snapshot.FaceDetected
	s.mu.Unlock()

	if changed {
		log.WithRequestID(s.log, ctx).
			WithField("face_detected", snapshot.FaceDetected).
			Info("Client observed face transition")
	}

	return detection.FaceDetectResponse{FaceDetected: snapshot.FaceDetected}
}

func (s *detectionService) GetStatus(ctx context.Context) detection.StatusResponse {
	snapshot := s.state.Snapshot()

	resp := detection.StatusResponse{
		FaceDetected: snapshot.FaceDetected,
		Frames:       snapshot.Frames,
		HostedMode:   s.hardware.HostedMode,
		Detector:     string(s.hardware.Detector),
	}
	if !snapshot.UpdatedAt.IsZero() {
		updatedAt := snapshot.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	if s.trigger != nil {
		resp.PulsesFired = s.trigger.Fired()
		resp.PulsesSkipped = s.trigger.Skipped()
		resp.PulseInProgress = s.trigger.Busy()
	}
	if s.servo != nil {
		resp.ServoAttached = s.servo.Available()
	}
	if s.loop != nil {
		resp.CameraActive = s.loop.Running()
	}

	return resp
}

func (s *detectionService) TriggerPulse(ctx context.Context, req detection.PulseRequest) (*detection.PulseResponse, error) {
	logger := log.WithRequestID(s.log, ctx)

	if s.trigger == nil || s.servo == nil || !s.servo.Available() {
		logger.Warn("Manual pulse requested without a servo")
		return nil, detection.ErrServoUnavailable
	}

	duration := s.hardware.PulseDuration
	if req.DurationMS > 0 {
		duration = time.Duration(req.DurationMS) * time.Millisecond
	}

	id, err := s.trigger.Fire(duration)
	if err != nil {
		if errors.Is(err, trigger.ErrPulseInFlight) {
			return nil, detection.ErrPulseInProgress
		}
		logger.WithError(err).Error("Failed to start manual servo pulse")
		return nil, detection.ErrInternalServerError
	}

	logger.WithFields(logrus.Fields{
		"pulse_id": id,
		"duration": duration.String(),
	}).Info("Manual servo pulse started")

	return &detection.PulseResponse{
		PulseID:    id,
		DurationMS: duration.Milliseconds(),
		Status:     "started",
	}, nil
}

func (s *detectionService) Subscribe(buffer int) (<-chan entity.FaceState, func()) {
	return s.state.Subscribe(buffer)
}
