// ABOUTME: Build identification for motionsync
// ABOUTME: Version is overridden at link time with -ldflags "-X .../internal/version.Version=..."
package version

import "fmt"

// Version is the release version
var Version = "0.1.0"

const (
	// Product is reported to media players and in logs
	Product = "motionsync"

	// Manufacturer identifies the project
	Manufacturer = "motionsync project"
)

// String returns "motionsync 0.1.0"
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}
