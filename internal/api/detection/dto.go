package detection

import "time"

// FaceDetectResponse is the body of GET /detect_face.
type FaceDetectResponse struct {
	FaceDetected bool `json:"face_detected"`
}

type StatusResponse struct {
	FaceDetected    bool       `json:"face_detected"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	Frames          uint64     `json:"frames"`
	PulsesFired     uint64     `json:"pulses_fired"`
	PulsesSkipped   uint64     `json:"pulses_skipped"`
	PulseInProgress bool       `json:"pulse_in_progress"`
	CameraActive    bool       `json:"camera_active"`
	ServoAttached   bool       `json:"servo_attached"`
	HostedMode      bool       `json:"hosted_mode"`
	Detector        string     `json:"detector,omitempty"`
}

type FaceStateMessage struct {
	FaceDetected bool      `json:"face_detected"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PulseRequest struct {
	DurationMS int `json:"duration_ms" validate:"omitempty,min=100,max=10000"`
}

type PulseResponse struct {
	PulseID    string `json:"pulse_id"`
	DurationMS int64  `json:"duration_ms"`
	Status     string `json:"status"`
}

type DetectorBackend string

const (
	CascadeDetector DetectorBackend = "cascade"
	DNNDetector     DetectorBackend = "dnn"
	RemoteDetector  DetectorBackend = "remote"
)
