package netiface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromInterface(t *testing.T) {
	tests := []struct {
		name     string
		ifName   string
		flags    []string
		expected Kind
	}{
		{"loopback flag wins", "lo", []string{"up", "loopback"}, KindLoopback},
		{"linux tun", "tun0", []string{"up", "pointtopoint"}, KindTunnel},
		{"linux tap", "tap1", []string{"up"}, KindTunnel},
		{"macos utun", "utun3", []string{"up", "pointtopoint"}, KindTunnel},
		{"wireguard", "wg0", []string{"up", "pointtopoint"}, KindTunnel},
		{"ppp by name", "ppp0", []string{"up"}, KindPPP},
		{"ppp by flag", "isdn0", []string{"up", "pointtopoint"}, KindPPP},
		{"linux wlan", "wlan0", []string{"up"}, KindWireless80211},
		{"linux wlp", "wlp2s0", []string{"up"}, KindWireless80211},
		{"windows wifi", "Wi-Fi", []string{"up"}, KindWireless80211},
		{"windows wireless", "Wireless Network Connection", []string{"up"}, KindWireless80211},
		{"linux eth", "eth0", []string{"up"}, KindEthernet},
		{"linux enp", "enp3s0", []string{"up"}, KindEthernet},
		{"macos en", "en0", []string{"up"}, KindEthernet},
		{"windows ethernet", "Ethernet 2", []string{"up"}, KindEthernet},
		{"unrecognized", "fancy0", []string{"up"}, KindUnknown},
		{"no flags", "mystery", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, kindFromInterface(tt.ifName, tt.flags))
		})
	}
}

func TestStatusFromFlags(t *testing.T) {
	tests := []struct {
		name     string
		flags    []string
		expected OperStatus
	}{
		{"up among others", []string{"broadcast", "up", "multicast"}, StatusUp},
		{"no up flag", []string{"broadcast", "multicast"}, StatusDown},
		{"empty flags", nil, StatusDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFromFlags(tt.flags))
		})
	}
}

func TestLinkSpeed(t *testing.T) {
	t.Run("non-linux platforms report unknown", func(t *testing.T) {
		assert.Zero(t, linkSpeed(PlatformWindows, "Ethernet"))
		assert.Zero(t, linkSpeed(PlatformMacOS, "en0"))
	})

	t.Run("missing sysfs entry reports unknown", func(t *testing.T) {
		assert.Zero(t, linkSpeed(PlatformLinux, "definitely-not-a-real-interface-0"))
	})

	t.Run("empty name reports unknown", func(t *testing.T) {
		assert.Zero(t, linkSpeed(PlatformLinux, ""))
	})

	t.Run("traversal attempt reports unknown", func(t *testing.T) {
		assert.Zero(t, linkSpeed(PlatformLinux, "../../etc"))
	})
}

func TestHasAnyPrefix(t *testing.T) {
	assert.True(t, hasAnyPrefix("eth0", "wl", "eth"))
	assert.False(t, hasAnyPrefix("br0", "wl", "eth"))
	assert.False(t, hasAnyPrefix("", "wl"))
}
