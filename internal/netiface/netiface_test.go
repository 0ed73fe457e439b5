package netiface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptor_Key(t *testing.T) {
	tests := []struct {
		name       string
		descriptor Descriptor
		expected   string
	}{
		{
			name:       "name and description",
			descriptor: Descriptor{Name: "Ethernet", Description: "Intel(R) I219-V"},
			expected:   "Ethernet|Intel(R) I219-V",
		},
		{
			name:       "empty description",
			descriptor: Descriptor{Name: "eth0"},
			expected:   "eth0|",
		},
		{
			name:       "key ignores volatile fields",
			descriptor: Descriptor{Name: "eth0", SpeedBps: 1_000_000_000, Status: StatusDown},
			expected:   "eth0|",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.descriptor.Key())
		})
	}
}

func TestCurrentPlatform(t *testing.T) {
	// Exact value depends on the build target; it must always be one of
	// the known rule-set selectors.
	p := CurrentPlatform()
	assert.Contains(t, []Platform{PlatformWindows, PlatformMacOS, PlatformLinux, PlatformOther}, p)
}
