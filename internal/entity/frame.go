package entity

import "time"

type Frame struct {
	Data       []byte
	Width      int
	Height     int
	Sequence   uint64
	CapturedAt time.Time
}
