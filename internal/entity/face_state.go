package entity

import "time"

type FaceState struct {
	FaceDetected bool      `json:"face_detected"`
	UpdatedAt    time.Time `json:"updated_at"`
	Frames       uint64    `json:"frames"`
}

type ServoEvent struct {
	ID         string        `json:"id"`
	Source     string        `json:"source"`
	Duration   time.Duration `json:"duration_ns"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Error      string        `json:"error,omitempty"`
}

const (
	ServoSourceDetection = "detection"
	ServoSourceManual    = "manual"
)
