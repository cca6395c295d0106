package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/couchkit/internal/models"
)

// RecordingView implements models.UploadView and keeps every call
type RecordingView struct {
	mu       sync.Mutex
	started  int
	progress []float64
}

// StartUpload records the start of an upload
func (v *RecordingView) StartUpload() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.started++
}

// UpdateUpload records a progress value
func (v *RecordingView) UpdateUpload(percent float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.progress = append(v.progress, percent)
}

// Snapshot returns the start count and a copy of the progress values
func (v *RecordingView) Snapshot() (int, []float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.started, append([]float64(nil), v.progress...)
}

// MockViewSource implements handlers.ViewSource
type MockViewSource struct {
	mock.Mock
}

func (m *MockViewSource) View(attachmentID string) models.UploadView {
	args := m.Called(attachmentID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(models.UploadView)
}
