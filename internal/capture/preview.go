package capture

import (
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Preview keeps the latest frame as JPEG for viewers. Frames are only
// encoded while someone is watching.
type Preview struct {
	viewers atomic.Int32

	mu   sync.RWMutex
	jpeg []byte
	seq  uint64
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{}
}

// Watch registers a viewer. Call the returned func to unregister.
func (p *Preview) Watch() (stop func()) {
	p.viewers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { p.viewers.Add(-1) })
	}
}

// Watching reports whether any viewer is registered.
func (p *Preview) Watching() bool {
	return p.viewers.Load() > 0
}

// Update encodes mat as the latest frame if anyone is watching.
func (p *Preview) Update(mat *gocv.Mat, seq uint64) error {
	if !p.Watching() || mat == nil || mat.Empty() {
		return nil
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return err
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)

	p.mu.Lock()
	p.jpeg = data
	p.seq = seq
	p.mu.Unlock()
	return nil
}

// Latest returns the last encoded frame and its sequence number. The slice
// must not be modified.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.jpeg, p.seq
}
