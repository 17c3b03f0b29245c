package models

// OSType identifies the advisory feed a device's software belongs to
type OSType string

const (
	OSTypeIOSXE OSType = "iosxe"
	OSTypeNXOS  OSType = "nxos"
	OSTypeASA   OSType = "asa"
	OSTypeFTD   OSType = "ftd"
	OSTypeWLC   OSType = "wlc"
	OSTypeIOSXR OSType = "iosxr"
)

// OSTypes lists every OS type an advisory source can be queried for
var OSTypes = []OSType{OSTypeIOSXE, OSTypeNXOS, OSTypeASA, OSTypeFTD, OSTypeWLC, OSTypeIOSXR}

// Device represents a single network device from an inventory
type Device struct {
	Hostname        string `json:"hostname"`
	ManagementIP    string `json:"managementIpAddress,omitempty"`
	PlatformID      string `json:"platformId,omitempty"`
	SoftwareType    string `json:"softwareType,omitempty"` // Free-text family hint, e.g. "IOS-XE"
	SoftwareVersion string `json:"softwareVersion"`
	SerialNumber    string `json:"serialNumber,omitempty"`
	Config          string `json:"-"` // Running configuration, lower-cased
}

// HasConfig returns true if configuration text was collected for the device
func (d Device) HasConfig() bool {
	return d.Config != ""
}

// String returns a human-readable representation
func (d Device) String() string {
	if d.PlatformID == "" {
		return d.Hostname + " (" + d.SoftwareVersion + ")"
	}
	return d.Hostname + " [" + d.PlatformID + "] (" + d.SoftwareVersion + ")"
}
