package version

import "fmt"

const (
	// Major is the current major version of the server.
	Major = 0

	// Minor is the current minor version of the server.
	Minor = 1

	// Patch is the current patch version of the server.
	Patch = 0
)

// String returns the full version string.
func String() string {
	return fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
}
