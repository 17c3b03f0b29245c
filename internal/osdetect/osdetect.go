// Package osdetect maps a device's declared software family and platform
// to the OS type used to select an advisory feed.
package osdetect

import (
	"strings"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// Default is returned when nothing identifies the device's OS
const Default = models.OSTypeIOSXE

type rule struct {
	tokens []string
	osType models.OSType
}

// familyRules are checked against the software family hint, in order
var familyRules = []rule{
	{[]string{"ios-xe"}, models.OSTypeIOSXE},
	{[]string{"nx-os", "nxos"}, models.OSTypeNXOS},
	{[]string{"asa"}, models.OSTypeASA},
	{[]string{"ftd", "firepower"}, models.OSTypeFTD},
	{[]string{"wireless", "wlc"}, models.OSTypeWLC},
	{[]string{"ios xr"}, models.OSTypeIOSXR},
}

// platformRules are checked against the platform identifier, in order
var platformRules = []rule{
	{[]string{"c9", "cat"}, models.OSTypeIOSXE},
	{[]string{"n9"}, models.OSTypeNXOS},
	{[]string{"asa"}, models.OSTypeASA},
	{[]string{"ftd"}, models.OSTypeFTD},
}

// Classify returns the OS type for a device. It never fails: devices that
// match no rule get Default.
func Classify(device models.Device) models.OSType {
	if osType, ok := match(familyRules, device.SoftwareType); ok {
		return osType
	}

	if device.PlatformID == "" {
		return Default
	}

	if osType, ok := match(platformRules, device.PlatformID); ok {
		return osType
	}

	return Default
}

func match(rules []rule, value string) (models.OSType, bool) {
	value = strings.ToLower(value)
	if value == "" {
		return "", false
	}
	for _, r := range rules {
		for _, token := range r.tokens {
			if strings.Contains(value, token) {
				return r.osType, true
			}
		}
	}
	return "", false
}
