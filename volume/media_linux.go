//go:build linux

package volume

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
)

// MediaTypeFor classifies the device backing path via the kernel's
// rotational flag. Failure to resolve anything yields MediaUnknown,
// which schedulers treat like mechanical media.
func MediaTypeFor(path string) MediaType {
	if dev, ok := deviceForPath(path); ok {
		if media, ok := rotationalMedia(dev); ok {
			return media
		}
	}
	// Fall back to the first block device with a definitive answer.
	entries, err := os.ReadDir("/sys/block")
	if err != nil {
		return MediaUnknown
	}
	for _, entry := range entries {
		if media, ok := rotationalMedia(entry.Name()); ok {
			return media
		}
	}
	return MediaUnknown
}

func deviceForPath(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	parts, err := disk.Partitions(false)
	if err != nil {
		return "", false
	}
	device := ""
	bestLen := -1
	for _, p := range parts {
		if strings.HasPrefix(abs, p.Mountpoint) && len(p.Mountpoint) > bestLen {
			device = p.Device
			bestLen = len(p.Mountpoint)
		}
	}
	if device == "" {
		return "", false
	}
	return baseBlockDevice(device), true
}

// baseBlockDevice strips the partition suffix from a device path:
// /dev/sda1 -> sda, /dev/nvme0n1p2 -> nvme0n1.
func baseBlockDevice(device string) string {
	name := filepath.Base(device)
	if strings.HasPrefix(name, "nvme") || strings.HasPrefix(name, "mmcblk") {
		if idx := strings.LastIndex(name, "p"); idx > 0 {
			return name[:idx]
		}
		return name
	}
	return strings.TrimRight(name, "0123456789")
}

func rotationalMedia(device string) (MediaType, bool) {
	rotPath := filepath.Join("/sys/block", device, "queue/rotational")
	b, err := os.ReadFile(rotPath)
	if err != nil {
		return MediaUnknown, false
	}
	switch strings.TrimSpace(string(b)) {
	case "1":
		return MediaHDD, true
	case "0":
		return MediaSSD, true
	}
	return MediaUnknown, false
}
