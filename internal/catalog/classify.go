package catalog

import (
	"regexp"
	"strings"
)

const archiveExt = `(\.(img|bin|gz|tar|zip|xz|7z|bz2))+`

var (
	modSDCardSuffix = regexp.MustCompile(`(?i)-\d{8}-MODSDCARD` + archiveExt + `$`)
	datedSuffix     = regexp.MustCompile(`(?i)-\d{8}` + archiveExt + `$`)
	separatorRun    = regexp.MustCompile(`[-_\s]{2,}`)
)

const (
	modSDCardMarker = "-MODSDCARD"
	separators      = "-_ \t\r\n"
)

// Normalizer derives display names from asset filenames.
type Normalizer struct {
	vanity []*regexp.Regexp
}

// NewNormalizer returns a Normalizer that also strips the given vanity tags
// (case-insensitive literal match).
func NewNormalizer(vanityTags []string) Normalizer {
	var n Normalizer
	for _, tag := range vanityTags {
		if tag = strings.TrimSpace(tag); tag != "" {
			n.vanity = append(n.vanity, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(tag)))
		}
	}
	return n
}

// Normalize is Normalizer.Normalize without vanity tags.
func Normalize(name string) string {
	return Normalizer{}.Normalize(name)
}

// Normalize strips the build date and archive extension, vanity tags and
// repeated separators. Every step only shortens the name, and the steps are
// repeated until nothing changes, so normalizing twice is a no-op.
func (n Normalizer) Normalize(name string) string {
	for {
		next := n.step(name)
		if next == name {
			return next
		}
		name = next
	}
}

func (n Normalizer) step(name string) string {
	if strings.Contains(strings.ToLower(name), "modsdcard") {
		name = modSDCardSuffix.ReplaceAllString(name, modSDCardMarker)
	} else {
		name = datedSuffix.ReplaceAllString(name, "")
	}
	for _, re := range n.vanity {
		name = re.ReplaceAllString(name, "")
	}
	name = separatorRun.ReplaceAllString(name, "-")
	return strings.Trim(name, separators)
}

var immortalKeywords = []string{"immortalwrt", "immortal"}

// ClassifyFirmware returns the distribution named by the filename,
// defaulting to OpenWrt.
func ClassifyFirmware(name string) Category {
	lower := strings.ToLower(name)
	for _, k := range immortalKeywords {
		if strings.Contains(lower, k) {
			return CategoryImmortalWrt
		}
	}
	return CategoryOpenWrt
}

type deviceRule struct {
	device   Device
	keywords []string
}

// deviceRules is evaluated top to bottom. s905x4 sits before s905 because
// every s905x4 name also contains "s905".
var deviceRules = []deviceRule{
	{DeviceOrangePi, []string{"orangepi", "orange-pi"}},
	{DeviceNanoPi, []string{"nanopi", "nano-pi"}},
	{DeviceRaspberryPi, []string{"raspberry", "rpi", "bcm27"}},
	{DeviceX86_64, []string{"x86_64", "x86-64", "amd64"}},
	{DeviceS905X4, []string{"s905x4"}},
	{DeviceS905, []string{"s905"}},
	{DeviceS912, []string{"s912"}},
	{DeviceS922, []string{"s922"}},
	{DeviceA311D, []string{"a311d"}},
	{DeviceHG680P, []string{"hg680p"}},
	{DeviceB860H, []string{"b860h"}},
	{DeviceTX3, []string{"tx3"}},
	{DeviceH96, []string{"h96"}},
	{DeviceAdvan, []string{"advan"}},
}

// Devices lists the device families in selector order.
func Devices() []Device {
	out := make([]Device, 0, len(deviceRules)+1)
	for _, r := range deviceRules {
		out = append(out, r.device)
	}
	return append(out, DeviceUnknown)
}

// ClassifyDevice returns the first device family whose keywords occur in
// the filename, or DeviceUnknown.
func ClassifyDevice(name string) Device {
	lower := strings.ToLower(name)
	for _, r := range deviceRules {
		for _, k := range r.keywords {
			if strings.Contains(lower, k) {
				return r.device
			}
		}
	}
	return DeviceUnknown
}
