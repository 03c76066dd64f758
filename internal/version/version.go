// Package version holds the single source of truth for build version info.
package version

// Version and BuildTime are overridden at release time via LDFLAGS:
//
//	go build -ldflags "-X github.com/rdomunky/comfyui-subfolderimageloader/internal/version.Version=v1.1.0"
var (
	Version   = "v1.0.0-dev"
	BuildTime = "unknown"
)
