package catalog

import "time"

// RawRelease is one element of the releases feed.
type RawRelease struct {
	Assets      []RawAsset `json:"assets"`
	PublishedAt string     `json:"published_at"`
	CreatedAt   string     `json:"created_at"`
}

// RawAsset is one downloadable file attached to a release.
type RawAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	DownloadCount      int64  `json:"download_count"`
}

// Category is the firmware distribution a build belongs to.
type Category string

const (
	CategoryOpenWrt     Category = "openwrt"
	CategoryImmortalWrt Category = "immortalwrt"
)

// Categories lists the distributions in selector order.
var Categories = []Category{CategoryOpenWrt, CategoryImmortalWrt}

// Device is the board or chip family a build targets.
type Device string

const (
	DeviceOrangePi    Device = "orangepi"
	DeviceNanoPi      Device = "nanopi"
	DeviceRaspberryPi Device = "raspberrypi"
	DeviceX86_64      Device = "x86_64"
	DeviceS905X4      Device = "s905x4"
	DeviceS905        Device = "s905"
	DeviceS912        Device = "s912"
	DeviceS922        Device = "s922"
	DeviceA311D       Device = "a311d"
	DeviceHG680P      Device = "hg680p"
	DeviceB860H       Device = "b860h"
	DeviceTX3         Device = "tx3"
	DeviceH96         Device = "h96"
	DeviceAdvan       Device = "advan"
	DeviceUnknown     Device = "unknown"
)

// FilterAll disables the category or device filter.
const FilterAll = "all"

// BuildRecord is one eligible, classified, de-duplicated asset.
// Records are never mutated after Build returns them.
type BuildRecord struct {
	DisplayName   string
	OriginalName  string
	Category      Category
	Device        Device
	URL           string
	Size          int64
	DownloadCount int64
	PublishedAt   time.Time // zero when the release carried no usable date
}

// BuildDTO is what the list and selection views expose over HTTP.
type BuildDTO struct {
	DisplayName        string     `json:"displayName" example:"openwrt-x86-64-generic" doc:"Normalized build name"`
	OriginalName       string     `json:"originalName" example:"openwrt-x86-64-generic-20240101.img.gz" doc:"Asset filename"`
	Category           Category   `json:"category" example:"openwrt" doc:"Firmware distribution"`
	Device             Device     `json:"device" example:"x86_64" doc:"Device family"`
	URL                string     `json:"url" example:"https://github.com/o/r/releases/download/v1/openwrt.img.gz" doc:"Asset download URL"`
	Size               int64      `json:"size" example:"104857600" doc:"Size in bytes"`
	SizeLabel          string     `json:"sizeLabel" example:"100.0 MB"`
	DownloadCount      int64      `json:"downloadCount" example:"10" doc:"Download count as shown to this client"`
	DownloadCountLabel string     `json:"downloadCountLabel" example:"10"`
	PublishedAt        *time.Time `json:"publishedAt,omitempty" example:"2024-01-01T00:00:00Z"`
	DateLabel          string     `json:"dateLabel" example:"01/01/2024"`
}

// ToDTO renders the record with the per-client download count.
func (b BuildRecord) ToDTO(downloadCount int64) BuildDTO {
	dto := BuildDTO{
		DisplayName:        b.DisplayName,
		OriginalName:       b.OriginalName,
		Category:           b.Category,
		Device:             b.Device,
		URL:                b.URL,
		Size:               b.Size,
		SizeLabel:          FormatSize(b.Size),
		DownloadCount:      downloadCount,
		DownloadCountLabel: FormatCount(downloadCount),
		DateLabel:          FormatDate(b.PublishedAt),
	}
	if !b.PublishedAt.IsZero() {
		t := b.PublishedAt
		dto.PublishedAt = &t
	}
	return dto
}
