package buildconfig

// Build-time variables injected via ldflags
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

const ServiceName = "matchengine"

// Version returns the build version
func Version() string {
	return version
}

// Commit returns the git commit hash
func Commit() string {
	return commit
}

func BuildTime() string {
	return buildTime
}

// VersionInfo returns full version information
func VersionInfo() map[string]string {
	return map[string]string{
		"service":    ServiceName,
		"version":    version,
		"commit":     commit,
		"build_time": buildTime,
	}
}
