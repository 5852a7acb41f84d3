package version

import "fmt"

const (
	// Version is the current version of kkfeed
	Version = "0.1.0"
)

// GetVersion returns the current version string
func GetVersion() string {
	return fmt.Sprintf("kkfeed %s", Version)
}
