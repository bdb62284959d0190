package progress

import "fmt"

// humanizeBytes renders count using binary (1024-based) unit prefixes,
// two decimal places, same scheme as dupfiles-go's humanReadableBytes.
func humanizeBytes(count uint64) string {
	bytes := float64(count)
	units := []string{"bytes", "KiB", "MiB", "GiB", "TiB", "PiB"}
	for _, unit := range units {
		if bytes < 1024 {
			return fmt.Sprintf("%.02f %s", bytes, unit)
		}
		bytes /= 1024
	}
	return fmt.Sprintf("%.02f EiB", bytes)
}
