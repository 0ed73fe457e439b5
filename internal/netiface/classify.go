package netiface

import (
	"sort"
	"strings"
)

// ruleSet holds one platform's classification rules. All name and
// description matching happens on lowercased input.
type ruleSet struct {
	// denyTokens excludes an interface when any token is a substring of
	// its name or description.
	denyTokens []string
	// acceptKinds is the fixed accept table for interface kinds.
	acceptKinds map[Kind]bool
	// wirelessNames, when set, restricts Wireless80211 interfaces to
	// names equal to, or a prefix of, one of the canonical forms. This
	// rejects synthetic Wi-Fi filter and service components that survive
	// the denylist but are not real adapters.
	wirelessNames []string
	// unknownPrefixes rescues Unknown-kind interfaces whose name starts
	// with a physical-adapter prefix.
	unknownPrefixes []string
	// unknownExcludes drops a rescued Unknown-kind interface when its
	// name contains any of these tokens.
	unknownExcludes []string
	// priorityPrefixes overrides the kind-based priority by name prefix.
	priorityPrefixes []prefixPriority
}

type prefixPriority struct {
	prefix   string
	priority int
}

// unixAcceptKinds is shared by the Linux and macOS rule sets. DSL, ISDN,
// modem and SLIP kinds never carry primary host traffic.
var unixAcceptKinds = map[Kind]bool{
	KindEthernet:        true,
	KindFastEthernetT:   true,
	KindFastEthernetFx:  true,
	KindGigabitEthernet: true,
	KindWireless80211:   true,
	KindPPP:             true,
}

// platformRules maps each platform onto its rule set. Windows needs a
// much larger denylist because filter, miniport and virtualization
// drivers all surface as ordinary adapters there.
var platformRules = map[Platform]*ruleSet{
	PlatformWindows: {
		denyTokens: []string{
			"virtual", "vmware", "vbox", "hyper-v", "vethernet",
			"bluetooth", "pseudo", "loopback", "teredo", "isatap",
			"6to4", "vpn", "wintun", "tap-windows", "tailscale",
			"zerotier", "npcap", "winpcap", "filter", "lightweight",
			"miniport", "ras async", "debug", "qos packet scheduler",
			"docker", "wsl",
		},
		acceptKinds: map[Kind]bool{
			KindEthernet:        true,
			KindGigabitEthernet: true,
			KindFastEthernetT:   true,
			KindFastEthernetFx:  true,
			KindWireless80211:   true,
		},
		wirelessNames: []string{"wi-fi", "wlan", "wireless network connection"},
	},
	PlatformLinux: {
		denyTokens: []string{
			"docker", "veth", "virbr", "vmnet", "vnet", "bridge", "br-",
			"tun", "tap", "wg", "vpn", "zerotier", "tailscale", "dummy",
			"ifb", "gre", "sit", "kube", "cni", "flannel", "calico",
		},
		acceptKinds:     unixAcceptKinds,
		unknownPrefixes: []string{"eth", "en", "wlan", "wl"},
		priorityPrefixes: []prefixPriority{
			{prefix: "en", priority: 10},
			{prefix: "wl", priority: 9},
		},
	},
	PlatformMacOS: {
		denyTokens: []string{
			"bridge", "utun", "tap", "awdl", "llw", "p2p", "gif", "stf",
			"vmnet", "vboxnet", "feth", "vpn", "ipsec",
		},
		acceptKinds:     unixAcceptKinds,
		unknownPrefixes: []string{"en"},
		unknownExcludes: []string{"bridge"},
	},
}

// rulesFor returns the rule set for a platform. Platforms without a
// dedicated table use the Linux rules, the most conservative Unix set.
func rulesFor(p Platform) *ruleSet {
	if r, ok := platformRules[p]; ok {
		return r
	}
	return platformRules[PlatformLinux]
}

// Classify filters a raw interface snapshot down to plausible physical
// uplinks, ordered by descending priority. The sort is stable so that
// repeated classification of an unchanged snapshot yields an identical
// ordering. Pure function of its inputs; empty or nil snapshots yield an
// empty list.
func Classify(platform Platform, snapshot []Descriptor) []Descriptor {
	rules := rulesFor(platform)

	candidates := make([]Descriptor, 0, len(snapshot))
	for _, d := range snapshot {
		if rules.accepts(d) {
			candidates = append(candidates, d)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return rules.priority(candidates[i]) > rules.priority(candidates[j])
	})

	return candidates
}

// accepts applies the filtering rules to a single descriptor.
func (r *ruleSet) accepts(d Descriptor) bool {
	if d.Status != StatusUp {
		return false
	}

	// Loopback and tunnel kinds are rejected before any name matching.
	if d.Kind == KindLoopback || d.Kind == KindTunnel {
		return false
	}

	name := strings.ToLower(d.Name)
	description := strings.ToLower(d.Description)
	for _, token := range r.denyTokens {
		if strings.Contains(name, token) || strings.Contains(description, token) {
			return false
		}
	}

	if d.Kind == KindWireless80211 && r.wirelessNames != nil {
		return matchesCanonicalName(name, r.wirelessNames)
	}

	if d.Kind == KindUnknown && len(r.unknownPrefixes) > 0 {
		return r.rescuesUnknown(name)
	}

	return r.acceptKinds[d.Kind]
}

// matchesCanonicalName reports whether name is equal to, or a prefix of,
// one of the canonical forms. "wi-fi" passes; "wlan-filter-driver" does
// not, because it is longer than every canonical form it resembles.
func matchesCanonicalName(name string, canonical []string) bool {
	if name == "" {
		return false
	}
	for _, c := range canonical {
		if strings.HasPrefix(c, name) {
			return true
		}
	}
	return false
}

// rescuesUnknown reports whether an Unknown-kind interface looks like a
// physical adapter by name alone.
func (r *ruleSet) rescuesUnknown(name string) bool {
	for _, token := range r.unknownExcludes {
		if strings.Contains(name, token) {
			return false
		}
	}
	for _, prefix := range r.unknownPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// priority returns the descending sort key for an accepted descriptor.
// Name-prefix overrides take precedence over the kind-based defaults so
// rescued Unknown-kind adapters can compete fairly.
func (r *ruleSet) priority(d Descriptor) int {
	name := strings.ToLower(d.Name)
	for _, p := range r.priorityPrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.priority
		}
	}

	switch d.Kind {
	case KindEthernet:
		return 10
	case KindWireless80211:
		return 9
	case KindGigabitEthernet:
		return 8
	case KindFastEthernetT:
		return 7
	case KindPPP:
		return 6
	default:
		return 5
	}
}

// SelectDefault returns the top-ranked candidate. The boolean is false
// when the list is empty; an empty list is a normal state, not an error.
func SelectDefault(candidates []Descriptor) (Descriptor, bool) {
	if len(candidates) == 0 {
		return Descriptor{}, false
	}
	return candidates[0], true
}

// Reselect prefers the candidate whose stable key equals previousKey so
// that a refresh does not needlessly switch away from an adapter that
// persisted, which would reset its accumulated totals. It falls back to
// SelectDefault when the previous interface is gone.
func Reselect(candidates []Descriptor, previousKey string) (Descriptor, bool) {
	if previousKey != "" {
		for _, d := range candidates {
			if d.Key() == previousKey {
				return d, true
			}
		}
	}
	return SelectDefault(candidates)
}
