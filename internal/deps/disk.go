package deps

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const gib = 1 << 30

// CheckDiskSpace verifies that path sits on a filesystem with at least
// minFreeGiB gibibytes free. Video downloads plus frame caches need real
// headroom before a run starts.
func CheckDiskSpace(path string, minFreeGiB int) error {
	if minFreeGiB <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", path, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	need := uint64(minFreeGiB) * gib
	if free < need {
		return fmt.Errorf("insufficient disk space on %s: %.1f GiB free, %d GiB required",
			path, float64(free)/gib, minFreeGiB)
	}
	return nil
}
