package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestPreview_OnlyEncodesWhileWatched(t *testing.T) {
	mat := gocv.NewMatWithSize(24, 32, gocv.MatTypeCV8UC3)
	defer mat.Close()

	p := NewPreview()
	if err := p.Update(&mat, 1); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if data, _ := p.Latest(); data != nil {
		t.Fatal("frame encoded with no viewers")
	}

	stop := p.Watch()
	if !p.Watching() {
		t.Fatal("Watching() = false after Watch")
	}
	if err := p.Update(&mat, 2); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	data, seq := p.Latest()
	if seq != 2 {
		t.Errorf("seq = %d, want 2", seq)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Errorf("latest frame is not a JPEG")
	}

	stop()
	stop()
	if p.Watching() {
		t.Error("Watching() = true after stop")
	}
}
