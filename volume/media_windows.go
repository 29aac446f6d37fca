//go:build windows

package volume

import (
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	ioctlStorageQueryProperty = 0x002D1400

	storageDeviceSeekPenaltyProperty = 7
	propertyStandardQuery            = 0
)

type storagePropertyQuery struct {
	PropertyID           uint32
	QueryType            uint32
	AdditionalParameters [1]byte
}

type deviceSeekPenaltyDescriptor struct {
	Version           uint32
	Size              uint32
	IncursSeekPenalty byte
	_                 [3]byte
}

// MediaTypeFor asks the storage stack whether the volume backing path
// incurs a seek penalty. Network paths and query failures report
// MediaUnknown, which schedules like mechanical media.
func MediaTypeFor(path string) MediaType {
	vol := filepath.VolumeName(path)
	if vol == "" || strings.HasPrefix(vol, `\\`) {
		return MediaUnknown
	}

	name, err := windows.UTF16PtrFromString(`\\.\` + vol)
	if err != nil {
		return MediaUnknown
	}
	handle, err := windows.CreateFile(
		name,
		0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return MediaUnknown
	}
	defer windows.CloseHandle(handle)

	query := storagePropertyQuery{
		PropertyID: storageDeviceSeekPenaltyProperty,
		QueryType:  propertyStandardQuery,
	}
	var desc deviceSeekPenaltyDescriptor
	var returned uint32
	err = windows.DeviceIoControl(
		handle,
		ioctlStorageQueryProperty,
		(*byte)(unsafe.Pointer(&query)),
		uint32(unsafe.Sizeof(query)),
		(*byte)(unsafe.Pointer(&desc)),
		uint32(unsafe.Sizeof(desc)),
		&returned,
		nil,
	)
	if err != nil {
		return MediaUnknown
	}
	if desc.IncursSeekPenalty == 0 {
		return MediaSSD
	}
	return MediaHDD
}
