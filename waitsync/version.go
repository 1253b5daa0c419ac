package waitsync

// Version information for waitsync.
const (
	// Version is the current release.
	Version = "0.1.0"

	// MinGoVersion is the oldest Go toolchain the module supports, in
	// semver form.
	MinGoVersion = "v1.24.0"
)

// Info describes the library build.
type Info struct {
	Version      string `yaml:"version"`
	MinGoVersion string `yaml:"min_go_version"`
	Platform     string `yaml:"platform"`
}

// GetInfo returns information about the library.
//
// Example:
//
//	info := waitsync.GetInfo()
//	fmt.Printf("waitsync %s on %s\n", info.Version, info.Platform)
func GetInfo() Info {
	return Info{
		Version:      Version,
		MinGoVersion: MinGoVersion,
		Platform:     "park (address-keyed FIFO queues)",
	}
}
