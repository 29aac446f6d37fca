//go:build darwin

package volume

// Every Mac shipped in the last decade boots from flash.
func MediaTypeFor(path string) MediaType {
	return MediaSSD
}
