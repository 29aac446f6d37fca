// Package volume enumerates mounted storage volumes and classifies the
// underlying media so the scanner can pick a concurrency policy.
package volume

import (
	"sort"
	"strings"

	"duscan/logger"

	"github.com/shirou/gopsutil/v4/disk"
)

type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaSSD
	MediaHDD
)

func (m MediaType) String() string {
	switch m {
	case MediaSSD:
		return "ssd"
	case MediaHDD:
		return "hdd"
	default:
		return "unknown"
	}
}

// ParseMediaType maps a config override to a MediaType. Anything other
// than ssd or hdd means "detect".
func ParseMediaType(s string) (MediaType, bool) {
	switch strings.ToLower(s) {
	case "ssd":
		return MediaSSD, true
	case "hdd":
		return MediaHDD, true
	default:
		return MediaUnknown, false
	}
}

type Volume struct {
	Path   string
	Device string
	Fstype string
	Total  uint64
	Free   uint64
	Media  MediaType
}

// List enumerates mounted physical volumes. Volumes whose usage cannot
// be read are skipped rather than failing the whole enumeration.
func List() ([]Volume, error) {
	parts, err := disk.Partitions(false)
	if err != nil {
		return nil, err
	}

	volumes := make([]Volume, 0, len(parts))
	for _, p := range parts {
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			logger.Debugf("Skipping volume %s: %v", p.Mountpoint, err)
			continue
		}
		volumes = append(volumes, Volume{
			Path:   p.Mountpoint,
			Device: p.Device,
			Fstype: p.Fstype,
			Total:  usage.Total,
			Free:   usage.Free,
			Media:  MediaTypeFor(p.Mountpoint),
		})
	}
	sort.Slice(volumes, func(i, j int) bool { return volumes[i].Path < volumes[j].Path })
	return volumes, nil
}

// Find returns the volume whose mountpoint is the longest prefix of path.
func Find(path string) (Volume, bool) {
	volumes, err := List()
	if err != nil {
		return Volume{}, false
	}
	best := -1
	for i, v := range volumes {
		if !strings.HasPrefix(path, v.Path) {
			continue
		}
		if best == -1 || len(v.Path) > len(volumes[best].Path) {
			best = i
		}
	}
	if best == -1 {
		return Volume{}, false
	}
	return volumes[best], true
}
