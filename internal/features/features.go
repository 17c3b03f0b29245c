// Package features decides whether an advisory concerns a feature that a
// device's running configuration actually enables.
package features

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// Map associates a lower-case feature tag with configuration substrings
// that indicate the feature is enabled.
type Map map[string][]string

// defaultMap is the built-in feature table
var defaultMap = Map{
	"ospf":       {"router ospf"},
	"eigrp":      {"router eigrp"},
	"bgp":        {"router bgp"},
	"rip":        {"router rip"},
	"snmp":       {"snmp-server"},
	"http":       {"ip http", "ip http server"},
	"https":      {"ip http secure-server"},
	"webui":      {"ip http", "webui"},
	"telnet":     {"transport input telnet"},
	"ssh":        {"ip ssh", "transport input ssh"},
	"ntp":        {"ntp server", "ntp peer"},
	"dhcp":       {"ip dhcp pool", "service dhcp"},
	"dns":        {"ip name-server"},
	"tftp":       {"tftp-server"},
	"ftp":        {"ftp-server"},
	"lldp":       {"lldp run"},
	"cdp":        {"cdp run"},
	"aaa":        {"aaa new-model", "radius-server", "tacacs-server"},
	"dot1x":      {"dot1x", "authentication port-control"},
	"macsec":     {"mka policy", "macsec"},
	"voice":      {"voice service voip", "dial-peer", "sip-ua"},
	"vlan":       {"vlan", "switchport access vlan"},
	"vxlan":      {"vxlan", "nve"},
	"controller": {"ap name", "wlan", "dot11", "mobility anchor"},
	"vpn":        {"crypto isakmp", "crypto ipsec", "tunnel protection", "tunnel interface", "vrf"},
	"omp":        {"omp", "vpn 0", "vmanage", "vsmart"},
	"ipsec":      {"crypto ipsec", "transform-set"},
	"ike":        {"crypto ikev2", "isakmp"},
	"sntp":       {"sntp server"},
	"netflow":    {"ip flow", "flow exporter"},
	"http2":      {"ip http2", "http2 enable"},
}

// Default returns a copy of the built-in feature table
func Default() Map {
	return defaultMap.clone()
}

func (m Map) clone() Map {
	out := make(Map, len(m))
	for feature, keywords := range m {
		out[feature] = append([]string(nil), keywords...)
	}
	return out
}

// Keywords returns the configuration keywords for a feature tag
func (m Map) Keywords(feature string) ([]string, bool) {
	keywords, ok := m[strings.ToLower(strings.TrimSpace(feature))]
	return keywords, ok
}

// Names returns the feature tags in sorted order
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match reports whether the advisory is relevant to the configuration and,
// when a keyword decided it, which one. Advisories without a feature tag or
// with a tag missing from the map are always relevant.
func (m Map) Match(adv models.Advisory, config string) (bool, string) {
	keywords, known := m.Keywords(adv.Feature)
	if strings.TrimSpace(adv.Feature) == "" || !known {
		return true, ""
	}

	config = strings.ToLower(config)
	for _, keyword := range keywords {
		if strings.Contains(config, strings.ToLower(keyword)) {
			return true, keyword
		}
	}
	return false, ""
}

// IsRelevant reports whether the advisory applies given the configuration text
func (m Map) IsRelevant(adv models.Advisory, config string) bool {
	relevant, _ := m.Match(adv, config)
	return relevant
}

// IsRelevant checks an advisory against the built-in feature table
func IsRelevant(adv models.Advisory, config string) bool {
	return defaultMap.IsRelevant(adv, config)
}

// mapFile is the on-disk TOML layout of a feature map
type mapFile struct {
	Features map[string][]string `toml:"features"`
}

// Load reads a feature map from a TOML file
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature map: %w", err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Decode parses a TOML feature map:
//
//	[features]
//	ospf = ["router ospf"]
func Decode(data []byte) (Map, error) {
	var f mapFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse feature map: %w", err)
	}
	if len(f.Features) == 0 {
		return nil, fmt.Errorf("feature map defines no features")
	}

	m := make(Map, len(f.Features))
	for feature, keywords := range f.Features {
		name := strings.ToLower(strings.TrimSpace(feature))
		var cleaned []string
		for _, kw := range keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				cleaned = append(cleaned, kw)
			}
		}
		if name == "" || len(cleaned) == 0 {
			return nil, fmt.Errorf("feature %q has no keywords", feature)
		}
		m[name] = cleaned
	}
	return m, nil
}

// Encode writes the map in the TOML layout accepted by Decode
func (m Map) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(mapFile{Features: m})
}
