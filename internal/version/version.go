package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/oetiker/mkp-builder/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/oetiker/mkp-builder/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/oetiker/mkp-builder/internal/version.Date={{.Date}}
)
