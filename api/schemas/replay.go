// File: api/schemas/replay.go
package schemas

import "time"

// Point is a viewport coordinate in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ReplayStep is one recorded interaction reduced to what a browser needs to
// reproduce it. Nil fields were not present in the recording.
type ReplayStep struct {
	Name          string    `json:"name"`
	Time          time.Time `json:"time"`
	Page          string    `json:"page,omitempty"`
	Dimension     *Viewport `json:"dimension,omitempty"`
	ScrollTop     *float64  `json:"scrollTop,omitempty"`
	MousePosition *Point    `json:"mousePosition,omitempty"`
}
