// Package netiface classifies a host's network interfaces and selects
// the one most likely to carry its primary traffic.
package netiface

import "runtime"

// Kind identifies the media type of a network interface.
type Kind string

const (
	// KindEthernet is a wired Ethernet adapter.
	KindEthernet Kind = "ethernet"
	// KindGigabitEthernet is a wired adapter reporting gigabit media.
	KindGigabitEthernet Kind = "gigabit-ethernet"
	// KindFastEthernetT is a 100BASE-T adapter.
	KindFastEthernetT Kind = "fast-ethernet-t"
	// KindFastEthernetFx is a 100BASE-FX adapter.
	KindFastEthernetFx Kind = "fast-ethernet-fx"
	// KindWireless80211 is an IEEE 802.11 adapter.
	KindWireless80211 Kind = "wireless-80211"
	// KindPPP is a point-to-point link.
	KindPPP Kind = "ppp"
	// KindLoopback is the loopback pseudo-interface.
	KindLoopback Kind = "loopback"
	// KindTunnel is a tunnel or VPN pseudo-interface.
	KindTunnel Kind = "tunnel"
	// KindDsl is a DSL modem link.
	KindDsl Kind = "dsl"
	// KindIsdn is an ISDN link.
	KindIsdn Kind = "isdn"
	// KindGenericModem is a dial-up modem link.
	KindGenericModem Kind = "modem"
	// KindSlip is a serial line IP link.
	KindSlip Kind = "slip"
	// KindUnknown is reported when the OS exposes no usable media type.
	KindUnknown Kind = "unknown"
)

// OperStatus is the operational status the OS reports for an interface.
type OperStatus string

const (
	// StatusUp indicates the interface is operational.
	StatusUp OperStatus = "up"
	// StatusDown indicates the interface is not operational.
	StatusDown OperStatus = "down"
	// StatusOther covers transitional and vendor-specific states.
	StatusOther OperStatus = "other"
)

// Platform identifies the host OS family and selects the classification
// rule set.
type Platform string

const (
	// PlatformWindows selects the Windows rule set.
	PlatformWindows Platform = "windows"
	// PlatformMacOS selects the macOS rule set.
	PlatformMacOS Platform = "darwin"
	// PlatformLinux selects the Linux rule set.
	PlatformLinux Platform = "linux"
	// PlatformOther selects the fallback rule set.
	PlatformOther Platform = "other"
)

// CurrentPlatform maps runtime.GOOS onto a Platform value.
func CurrentPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMacOS
	case "linux":
		return PlatformLinux
	default:
		return PlatformOther
	}
}

// Descriptor is a snapshot-time, read-only view of one network
// interface. A fresh enumeration replaces the whole set; descriptors are
// never mutated in place.
type Descriptor struct {
	// Name is the OS-assigned interface name (e.g. "eth0", "Wi-Fi").
	Name string `json:"name"`
	// Description is the vendor or driver label. Empty on platforms that
	// do not expose one.
	Description string `json:"description,omitempty"`
	// Kind is the media type of the interface.
	Kind Kind `json:"kind"`
	// Status is the operational status at snapshot time.
	Status OperStatus `json:"status"`
	// SpeedBps is the negotiated link speed in bits per second, 0 when
	// unknown.
	SpeedBps uint64 `json:"speed_bps"`
	// Platform is the host OS family the descriptor was captured on.
	Platform Platform `json:"platform"`
}

// Key returns the stable identity of the interface. OS-level handles and
// indices may be re-created across snapshots; the name plus description
// pair survives that churn.
func (d Descriptor) Key() string {
	return d.Name + "|" + d.Description
}
