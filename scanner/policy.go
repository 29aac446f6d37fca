package scanner

import "duscan/volume"

// DefaultWorkerCap bounds the pool on solid-state media. Beyond this
// point extra workers only queue on the filesystem.
const DefaultWorkerCap = 16

// Workers maps a media type to a worker count. Flash tolerates parallel
// directory expansion; spinning media thrashes under it, so mechanical
// and unclassified volumes get exactly one worker. Pure function so the
// policy is testable without touching a disk.
func Workers(media volume.MediaType, cores, limit int) int {
	if limit < 1 {
		limit = 1
	}
	if cores < 1 {
		cores = 1
	}
	if media != volume.MediaSSD {
		return 1
	}
	if cores < limit {
		return cores
	}
	return limit
}
