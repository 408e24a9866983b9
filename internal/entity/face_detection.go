package entity

import "time"

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// DetectionResult is the payload returned by the remote face detection service.
type DetectionResult struct {
	Status       string             `json:"status"`
	Instructions []string           `json:"instructions"`
	FacePosition *Position          `json:"face_position,omitempty"`
	FaceSize     *float64           `json:"face_size,omitempty"`
	FrameCenter  Position           `json:"frame_center"`
	Deviations   map[string]float64 `json:"deviations,omitempty"`
	Faces        int                `json:"faces,omitempty"`
	Confidence   float64            `json:"conf,omitempty"`
	BBox         []int              `json:"bbox,omitempty"`
	Error        string             `json:"error,omitempty"`
}

type Detection struct {
	FacePresent bool          `json:"face_present"`
	Faces       int           `json:"faces"`
	Confidence  float64       `json:"confidence"`
	Box         *BoundingBox  `json:"box,omitempty"`
	Latency     time.Duration `json:"-"`
}
