// Package version holds the application version.
package version

// Version is the application version, overridable at build time via
// -ldflags "-X presence-hub/internal/version.Version=x.y.z".
var Version = "1.0.0"
