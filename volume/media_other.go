//go:build !linux && !darwin && !windows

package volume

func MediaTypeFor(path string) MediaType {
	return MediaUnknown
}
