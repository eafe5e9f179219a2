package detector

import (
	"errors"
	"math"
	"testing"
)

func TestHandLandmarks_PinchDistance(t *testing.T) {
	tests := []struct {
		name          string
		thumb, index  Point3D
		width, height int
		want          float64
	}{
		{"horizontal", Point3D{X: 0.2, Y: 0.5}, Point3D{X: 0.3, Y: 0.5}, 320, 240, 0.1},
		{"vertical scaled by aspect", Point3D{X: 0.5, Y: 0.2}, Point3D{X: 0.5, Y: 0.4}, 320, 240, 0.15},
		{"diagonal", Point3D{X: 0, Y: 0}, Point3D{X: 0.3, Y: 0.4}, 100, 100, 0.5},
		{"unknown size", Point3D{X: 0, Y: 0}, Point3D{X: 0.3, Y: 0.4}, 0, 0, 0.5},
		{"touching", Point3D{X: 0.4, Y: 0.4}, Point3D{X: 0.4, Y: 0.4}, 320, 240, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h HandLandmarks
			h.Points[ThumbTip] = tt.thumb
			h.Points[IndexTip] = tt.index

			if got := h.PinchDistance(tt.width, tt.height); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PinchDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandLandmarks_IsLeft(t *testing.T) {
	left := PinchLandmarks(LeftHand, 0.1)
	right := PinchLandmarks(RightHand, 0.1)

	if !left.IsLeft() {
		t.Error("left hand should report IsLeft")
	}
	if right.IsLeft() {
		t.Error("right hand should not report IsLeft")
	}
}

func TestPinchLandmarks(t *testing.T) {
	for _, d := range []float64{0, 0.05, 0.09, 0.2} {
		h := PinchLandmarks(RightHand, d)
		if got := h.PinchDistance(100, 100); math.Abs(got-d) > 1e-9 {
			t.Errorf("PinchLandmarks(%v) distance = %v", d, got)
		}
	}
}

func TestMockDetector(t *testing.T) {
	m := NewMockDetector()

	hands, err := m.Detect(nil)
	if err != nil || len(hands) != 0 {
		t.Fatalf("new mock should find no hands, got %v, %v", hands, err)
	}

	m.SetHands([]HandLandmarks{PinchLandmarks(LeftHand, 0.2)})
	m.Enqueue(nil, []HandLandmarks{PinchLandmarks(LeftHand, 0.05), PinchLandmarks(RightHand, 0.1)})

	if hands, _ := m.Detect(nil); len(hands) != 0 {
		t.Errorf("first queued frame should be empty, got %d hands", len(hands))
	}
	if hands, _ := m.Detect(nil); len(hands) != 2 {
		t.Errorf("second queued frame should have 2 hands, got %d", len(hands))
	}
	if hands, _ := m.Detect(nil); len(hands) != 1 {
		t.Errorf("after the queue the fixed hands should be returned, got %d", len(hands))
	}

	wantErr := errors.New("service died")
	m.SetError(wantErr)
	if _, err := m.Detect(nil); !errors.Is(err, wantErr) {
		t.Errorf("Detect() error = %v, want %v", err, wantErr)
	}
	if m.Calls() != 5 {
		t.Errorf("Calls() = %d, want 5", m.Calls())
	}
}

func TestJSONHand_ToHandLandmarks(t *testing.T) {
	h := jsonHand{
		Points:     []Point3D{{X: 0.1}, {X: 0.2}},
		Handedness: RightHand,
		Score:      0.9,
	}

	lm := h.toHandLandmarks()
	if lm.Points[1].X != 0.2 || lm.Points[NumLandmarks-1] != (Point3D{}) {
		t.Errorf("unexpected points %+v", lm.Points)
	}
	if lm.Handedness != RightHand || lm.Score != 0.9 {
		t.Errorf("unexpected metadata %+v", lm)
	}
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Script = "/nonexistent/mediapipe_service.py"

	if _, err := NewMediaPipeDetector(cfg); err == nil {
		t.Error("expected error for a missing service script")
	}
}
