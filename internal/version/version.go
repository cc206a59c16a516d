// Package version resolves the build version from ldflags or module
// build info.
package version

import (
	"runtime/debug"
	"strings"
)

const defaultModule = "github.com/WayneSimpson/clickup-mcp-server"

// buildVersion is set via -ldflags
// "-X github.com/WayneSimpson/clickup-mcp-server/internal/version.buildVersion=...".
var buildVersion = ""

// Current returns the best available version string.
func Current() string {
	if strings.TrimSpace(buildVersion) != "" {
		return buildVersion
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return v
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 12 {
				return "v0.0.0-" + setting.Value[:12]
			}
		}
	}
	return "v0.0.0-unknown"
}

// Module returns the module path from build info when available.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}
