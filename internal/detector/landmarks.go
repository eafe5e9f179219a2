// Package detector finds hands in camera frames and measures the pinch
// distance between thumb and index fingertips.
package detector

import "math"

// Hand landmark indices following the MediaPipe convention.
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness labels reported by the detector. Frames are mirrored before
// detection, so the label matches the user's own hand.
const (
	LeftHand  = "Left"
	RightHand = "Right"
)

// Point3D is a landmark in normalized image coordinates: X and Y in [0, 1]
// of the frame width and height, Z relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks are the 21 landmarks of one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"`
	Score      float64               `json:"score"`
}

// IsLeft reports whether the hand was classified as the left hand.
func (h *HandLandmarks) IsLeft() bool {
	return h.Handedness == LeftHand
}

// PinchDistance returns the thumb-tip to index-tip distance in units of
// frame width for a width x height frame. Y is scaled by the aspect ratio so
// the distance does not depend on pinch orientation.
func (h *HandLandmarks) PinchDistance(width, height int) float64 {
	if width <= 0 || height <= 0 {
		return planar(h.Points[ThumbTip], h.Points[IndexTip], 1)
	}
	return planar(h.Points[ThumbTip], h.Points[IndexTip], float64(height)/float64(width))
}

func planar(a, b Point3D, aspect float64) float64 {
	return math.Hypot(a.X-b.X, (a.Y-b.Y)*aspect)
}
