// Package model contains domain models passed between layers.
package model

import (
	"image"
	"time"
)

// StrategyID identifies one recognition strategy within a session.
type StrategyID string

// Known strategy identifiers.
const (
	StrategyNativeInference StrategyID = "native_inference"
	StrategySoftwareDecode  StrategyID = "software_decode"
	StrategyStaticImage     StrategyID = "static_image"
)

// Method names the recognition path that produced an attendance event.
// It mirrors the StrategyID of the accepted detection.
type Method string

// Attendance methods.
const (
	MethodNativeInference Method = "native_inference"
	MethodSoftwareDecode  Method = "software_decode"
	MethodStaticImage     Method = "static_image"
)

// Facing is a camera facing mode, tried in priority order when opening.
type Facing string

// Facing modes. Environment (rear) first: it is the better choice for
// scanning a code that is not on the device itself.
const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
	FacingAny         Facing = "any"
)

// Frame is a single captured video frame. Frames are ephemeral: the sampler
// hands each one to a strategy and never retains it past one recognition
// pass, so a live feed cannot accumulate pixel buffers.
type Frame struct {
	Width      int
	Height     int
	Image      image.Image
	CapturedAt time.Time
}

// Point is one corner of a detected code in frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is the four corner points of a detected code. It is advisory
// geometry for UI feedback only and carries no business meaning.
type Quad [4]Point

// Detection is a candidate decoded payload produced by one strategy.
// Immutable once created; at most one per session is ever accepted.
type Detection struct {
	Strategy   StrategyID
	Payload    string
	Geometry   *Quad   // optional, software decode only
	Confidence float64 // optional, 0 when the engine reports none
	DetectedAt time.Time
}

// Capability describes what the platform offers, queried once at session
// start and read-only afterward.
type Capability struct {
	NativeInferenceSupported bool
	FacingOptions            []Facing
}

// Identity is the authenticated user an attendance event is attached to.
type Identity struct {
	UserID string
	Email  string
}

// AttendanceEvent is the single durable outcome of a scan session.
// SessionID doubles as the idempotency key at the store.
type AttendanceEvent struct {
	SessionID   string
	UserID      string
	Payload     string
	Method      Method
	CapturedAt  time.Time
	SubmittedAt time.Time
}
