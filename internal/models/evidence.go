package models

import "strings"

// DeviceType is the platform whose artefacts are being examined.
type DeviceType string

const (
	DeviceAndroid DeviceType = "android"
	DeviceWindows DeviceType = "windows"
)

// ParseDeviceType normalizes a raw device string. The empty string defaults
// to DeviceAndroid. The second return value reports whether the value was
// recognized.
func ParseDeviceType(raw string) (DeviceType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(DeviceAndroid):
		return DeviceAndroid, true
	case string(DeviceWindows):
		return DeviceWindows, true
	}
	return "", false
}

// EvidenceItem is one forensic artefact class as returned by the evidence
// catalog. It is only meaningful in the context of a (crime subtype, device)
// pair and is re-fetched whenever the pair changes.
type EvidenceItem struct {
	Name         string   `json:"name"`
	Significance string   `json:"significance"`
	Locations    []string `json:"locations"`
}

// Artefact is the display form of an EvidenceItem. The first catalog location
// becomes the primary location and the remainder are folded into an
// "also found at" note.
type Artefact struct {
	Name            string
	Significance    string
	PrimaryLocation string
	AlsoFoundAt     string
}

// NormalizeSubtype lower-cases and trims a crime subtype name. Subtypes are
// unique by their normalized value.
func NormalizeSubtype(subtype string) string {
	return strings.ToLower(strings.TrimSpace(subtype))
}
