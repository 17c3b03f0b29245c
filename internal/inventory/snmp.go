package inventory

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ethanolivertroy/psirt-check/internal/logging"
	"github.com/ethanolivertroy/psirt-check/internal/models"
)

const (
	oidSysDescr    = "1.3.6.1.2.1.1.1.0"
	oidSysObjectID = "1.3.6.1.2.1.1.2.0"
	oidSysName     = "1.3.6.1.2.1.1.5.0"
)

// SystemInfo holds the MIB-II system group values of one agent
type SystemInfo struct {
	SysDescr    string
	SysObjectID string
	SysName     string
}

// SNMPProvider builds devices by polling the system group of each target
// over SNMP v2c. It collects no configuration text.
type SNMPProvider struct {
	Targets   []string
	Community string
	Port      uint16
	Timeout   time.Duration
	Workers   int

	query  func(ctx context.Context, target string) (SystemInfo, error)
	logger *zap.Logger
}

// NewSNMPProvider creates a provider polling the given targets
func NewSNMPProvider(targets []string, community string, port uint16, timeout time.Duration) *SNMPProvider {
	p := &SNMPProvider{
		Targets:   targets,
		Community: community,
		Port:      port,
		Timeout:   timeout,
		Workers:   16,
		logger:    logging.L("snmp"),
	}
	p.query = p.querySystem
	return p
}

// Devices polls every target. Unreachable targets are logged and skipped;
// an error is returned only when no target answers.
func (p *SNMPProvider) Devices(ctx context.Context) ([]models.Device, error) {
	if len(p.Targets) == 0 {
		return nil, fmt.Errorf("no SNMP targets configured")
	}

	found := make([]*models.Device, len(p.Targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Workers, 1))
	for i, target := range p.Targets {
		g.Go(func() error {
			info, err := p.query(gctx, target)
			if err != nil {
				p.logger.Warn("SNMP query failed", zap.String("target", target), zap.Error(err))
				return nil
			}
			device := deviceFromSystem(target, info)
			found[i] = &device
			return nil
		})
	}
	_ = g.Wait()

	devices := make([]models.Device, 0, len(found))
	for _, d := range found {
		if d != nil {
			devices = append(devices, *d)
		}
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no SNMP target responded (%d queried)", len(p.Targets))
	}
	return devices, nil
}

func (p *SNMPProvider) querySystem(ctx context.Context, target string) (SystemInfo, error) {
	gs := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    target,
		Port:      p.Port,
		Community: p.Community,
		Version:   gosnmp.Version2c,
		Timeout:   p.Timeout,
		Retries:   1,
	}
	if gs.Port == 0 {
		gs.Port = 161
	}
	if gs.Community == "" {
		gs.Community = "public"
	}
	if gs.Timeout <= 0 {
		gs.Timeout = 2 * time.Second
	}

	if err := gs.Connect(); err != nil {
		return SystemInfo{}, fmt.Errorf("SNMP connect failed: %w", err)
	}
	defer gs.Conn.Close()

	packet, err := gs.Get([]string{oidSysDescr, oidSysObjectID, oidSysName})
	if err != nil {
		return SystemInfo{}, err
	}
	if packet == nil || len(packet.Variables) == 0 {
		return SystemInfo{}, fmt.Errorf("SNMP response contained no variables")
	}

	var info SystemInfo
	for _, v := range packet.Variables {
		switch strings.TrimPrefix(v.Name, ".") {
		case oidSysDescr:
			info.SysDescr = pduString(v)
		case oidSysObjectID:
			info.SysObjectID = pduString(v)
		case oidSysName:
			info.SysName = pduString(v)
		}
	}
	if info.SysDescr == "" && info.SysName == "" {
		return SystemInfo{}, fmt.Errorf("SNMP agent returned an empty system group")
	}
	return info, nil
}

func pduString(v gosnmp.SnmpPDU) string {
	switch value := v.Value.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return gosnmp.ToBigInt(value).String()
	}
}

func deviceFromSystem(target string, info SystemInfo) models.Device {
	softwareType, platform, version := ParseSysDescr(info.SysDescr)
	hostname := strings.TrimSpace(info.SysName)
	if hostname == "" {
		hostname = target
	}
	return models.Device{
		Hostname:        hostname,
		ManagementIP:    target,
		PlatformID:      platform,
		SoftwareType:    softwareType,
		SoftwareVersion: version,
	}
}

var (
	versionPattern = regexp.MustCompile(`(?i)\bversion\s+([0-9][0-9A-Za-z.()\-]*)`)
	parenPattern   = regexp.MustCompile(`\(([^()]+)\)`)
)

// ParseSysDescr derives the software family, platform and version from a
// Cisco sysDescr string. Unknown parts are returned empty.
func ParseSysDescr(descr string) (softwareType, platform, version string) {
	lower := strings.ToLower(descr)
	switch {
	case strings.Contains(lower, "ios-xe"), strings.Contains(lower, "ios xe"), strings.Contains(lower, "iosxe"):
		softwareType = "IOS-XE"
	case strings.Contains(lower, "nx-os"):
		softwareType = "NX-OS"
	case strings.Contains(lower, "adaptive security appliance"):
		softwareType = "ASA"
	case strings.Contains(lower, "firepower"), strings.Contains(lower, "threat defense"):
		softwareType = "FTD"
	case strings.Contains(lower, "ios xr"):
		softwareType = "IOS XR"
	case strings.Contains(lower, "aireos"), strings.Contains(lower, "cisco controller"):
		softwareType = "Wireless"
	}

	if m := versionPattern.FindStringSubmatch(descr); m != nil {
		version = strings.TrimRight(m[1], ".-")
	}

	for _, m := range parenPattern.FindAllStringSubmatch(descr, -1) {
		inner := strings.TrimSpace(m[1])
		lowerInner := strings.ToLower(inner)
		if inner == "" || lowerInner == "tm" || lowerInner == "c" || strings.HasPrefix(lowerInner, "fc") ||
			strings.HasPrefix(lowerInner, "build") || (inner[0] >= '0' && inner[0] <= '9') {
			continue
		}
		// image names look like CAT9K_IOSXE or n9000-dk9
		if i := strings.IndexAny(inner, "_-"); i > 0 && !strings.Contains(inner, " ") {
			inner = inner[:i]
		}
		platform = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(inner, "Cisco "), " Series"))
		break
	}
	return softwareType, platform, version
}
