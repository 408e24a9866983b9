package detectionService

import (
	"FaceTrigger/internal/api/detection"
	"FaceTrigger/internal/entity"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type IDetectionService interface {
	GetFaceDetected(ctx context.Context) detection.FaceDetectResponse
	GetStatus(ctx context.Context) detection.StatusResponse
	TriggerPulse(ctx context.Context, req detection.PulseRequest) (*detection.PulseResponse, error)
	Subscribe(buffer int) (<-chan entity.FaceState, func())
}

type StateReader interface {
	Snapshot() entity.FaceState
	Subscribe(buffer int) (<-chan entity.FaceState, func())
}

type PulseTrigger interface {
	Fire(duration time.Duration) (string, error)
	Busy() bool
	Fired() uint64
	Skipped() uint64
}

type Servo interface {
	Available() bool
}

type LoopStatus interface {
	Running() bool
}

type PollRecorder interface {
	StatusPolled()
}

type Hardware struct {
	HostedMode    bool
	Detector      detection.DetectorBackend
	PulseDuration time.Duration
}

type detectionService struct {
	log      *logrus.Logger
	state    StateReader
	trigger  PulseTrigger
	servo    Servo
	loop     LoopStatus
	polls    PollRecorder
	hardware Hardware

	mu           sync.Mutex
	lastReported bool
}

func NewDetectionService(
	log *logrus.Logger,
	state StateReader,
	trigger PulseTrigger,
	servo Servo,
	loop LoopStatus,
	polls PollRecorder,
	hardware Hardware,
) IDetectionService {
	return &detectionService{
		log:      log,
		state:    state,
		trigger:  trigger,
		servo:    servo,
		loop:     loop,
		polls:    polls,
		hardware: hardware,
	}
}
