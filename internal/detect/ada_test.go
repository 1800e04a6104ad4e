package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaDetectorDetectFromPathReportsGNAT(t *testing.T) {
	manager, confidence, ok := AdaDetector{}.DetectFromPath("/build/myapp-widgets.ali")

	assert.True(t, ok)
	assert.Equal(t, "GNAT", manager)
	assert.Equal(t, 1.0, confidence)
}

func TestAdaDetectorDetectFromPathRejectsNonALIExtension(t *testing.T) {
	_, _, ok := AdaDetector{}.DetectFromPath("/build/myapp.so")
	assert.False(t, ok)
}

func TestMultiPackageManagerDetectorTriesEachInOrder(t *testing.T) {
	m := multiPackageManagerDetector{AdaDetector{}, RPMDetector{}}

	manager, _, ok := m.DetectFromPath("/build/myapp-widgets.ali")
	assert.True(t, ok)
	assert.Equal(t, "GNAT", manager)

	_, _, ok = m.DetectFromPath("/build/notes.txt")
	assert.False(t, ok)
}
