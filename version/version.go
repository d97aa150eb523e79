// Package version carries build identification, set at link time.
package version

//nolint:gochecknoglobals // set via -ldflags -X
var (
	name    = "voodoo-jitlog"
	version = "dev"
	commit  = "unknown"
)

// Name returns the application name.
func Name() string {
	return name
}

// Version returns the release version.
func Version() string {
	return version
}

// Commit returns the source commit the binary was built from.
func Commit() string {
	return commit
}
